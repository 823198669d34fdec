package filingcite

import (
	"fmt"
	"sort"
	"strings"
)

// companyFiles maps company keys to their 10-K filing source files.
// These are the source_file values the chunks were indexed under.
var companyFiles = map[string]string{
	"nvidia":   "nvidia_10k.pdf",
	"amd":      "amd_10k.pdf",
	"intel":    "intel_10k.pdf",
	"broadcom": "broadcom_10k.pdf",
}

// SourceForCompany resolves a company name (case-insensitive) to its
// source filing file.
func SourceForCompany(name string) (string, error) {
	file, ok := companyFiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q (available: %s)",
			ErrUnknownCompany, name, strings.Join(Companies(), ", "))
	}
	return file, nil
}

// Companies returns the known company names in sorted order.
func Companies() []string {
	names := make([]string, 0, len(companyFiles))
	for name := range companyFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
