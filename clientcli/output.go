package clientcli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Formatter formats results for output.
type Formatter interface {
	FormatStatus(w io.Writer, result *StatusResult) error
	FormatUpload(w io.Writer, results []UploadResult) error
	FormatFetch(w io.Writer, result *FetchResult) error
	FormatList(w io.Writer, result *ListResult) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatStatus formats a liveness probe as human-readable text.
func (f *HumanFormatter) FormatStatus(w io.Writer, result *StatusResult) error {
	_, _ = fmt.Fprintf(w, "%s: %s (%s)\n", result.Endpoint, result.Status, result.Latency.Round(time.Millisecond))
	return nil
}

// FormatUpload formats upload results as human-readable text.
func (f *HumanFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.LocalPath, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Uploaded: %s (%s, %s)\n", r.ItemName, r.ItemType, formatSize(r.Size))
			for _, v := range r.Variants {
				_, _ = fmt.Fprintf(w, "  %-9s %s\n", v.Presentation, v.Location)
			}
		}
	}
	return nil
}

// FormatFetch formats fetch result as human-readable text.
func (f *HumanFormatter) FormatFetch(w io.Writer, result *FetchResult) error {
	if f.Quiet {
		return nil
	}
	if result.LocalPath == "-" {
		_, _ = fmt.Fprintf(w, "Fetched: %s [%s] (%s)\n", result.ItemName, result.Presentation, formatSize(result.Size))
	} else {
		_, _ = fmt.Fprintf(w, "Fetched: %s [%s] -> %s (%s)\n", result.ItemName, result.Presentation, result.LocalPath, formatSize(result.Size))
	}
	return nil
}

// FormatList formats list results as human-readable text.
func (f *HumanFormatter) FormatList(w io.Writer, result *ListResult) error {
	if len(result.Items) == 0 {
		_, _ = fmt.Fprintln(w, "No items found")
		return nil
	}

	// Calculate column widths
	maxNameLen := 4 // "NAME"
	for i := range result.Items {
		if len(result.Items[i].Name) > maxNameLen {
			maxNameLen = len(result.Items[i].Name)
		}
	}
	if maxNameLen > 60 {
		maxNameLen = 60
	}

	// Print header
	_, _ = fmt.Fprintf(w, "%-*s  %-7s  %10s  %-24s  %s\n", maxNameLen, "NAME", "TYPE", "SIZE", "PRESENTATIONS", "UPDATED")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
		strings.Repeat("-", maxNameLen), strings.Repeat("-", 7), strings.Repeat("-", 10), strings.Repeat("-", 24), strings.Repeat("-", 19))

	// Print items
	for i := range result.Items {
		item := &result.Items[i]
		name := item.Name
		if len(name) > maxNameLen {
			name = name[:maxNameLen-3] + "..."
		}

		presentations := make([]string, len(item.Variants))
		for j, v := range item.Variants {
			presentations[j] = string(v.Presentation)
		}

		_, _ = fmt.Fprintf(w, "%-*s  %-7s  %10s  %-24s  %s\n",
			maxNameLen,
			name,
			item.ItemType,
			formatSize(item.Size),
			strings.Join(presentations, ","),
			item.UpdatedAt.Format("2006-01-02 15:04:05"),
		)
	}

	// Print summary
	_, _ = fmt.Fprintf(w, "\n%d item(s) (%s total)\n", len(result.Items), formatSize(result.TotalSize()))

	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatStatus formats a liveness probe as JSON.
func (f *JSONFormatter) FormatStatus(w io.Writer, result *StatusResult) error {
	return writeJSON(w, result)
}

// FormatUpload formats upload results as JSON.
func (f *JSONFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	// Convert errors to strings for JSON output
	type jsonResult struct {
		UploadResult
		UpdatedAt string `json:"updated_at,omitempty"`
		Error     string `json:"error,omitempty"`
	}

	output := make([]jsonResult, len(results))
	for i := range results {
		r := results[i]
		jr := jsonResult{UploadResult: r}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		} else {
			jr.UpdatedAt = r.UpdatedAt.Format(time.RFC3339)
		}
		output[i] = jr
	}

	return writeJSON(w, output)
}

// FormatFetch formats fetch result as JSON.
func (f *JSONFormatter) FormatFetch(w io.Writer, result *FetchResult) error {
	return writeJSON(w, result)
}

// FormatList formats list results as JSON.
func (f *JSONFormatter) FormatList(w io.Writer, result *ListResult) error {
	return writeJSON(w, result)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatProfileList formats a list of profiles as human-readable text.
func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	// Calculate column widths
	maxNameLen := 4     // "NAME"
	maxEndpointLen := 8 // "ENDPOINT"
	for i := range profiles {
		if len(profiles[i].Name) > maxNameLen {
			maxNameLen = len(profiles[i].Name)
		}
		if len(profiles[i].Endpoint) > maxEndpointLen {
			maxEndpointLen = len(profiles[i].Endpoint)
		}
	}
	if maxNameLen > 20 {
		maxNameLen = 20
	}
	if maxEndpointLen > 50 {
		maxEndpointLen = 50
	}

	// Print header
	_, _ = fmt.Fprintf(w, "  %-*s  %-*s  %-20s  %s\n", maxNameLen, "NAME", maxEndpointLen, "ENDPOINT", "OWNER", "TOKEN")
	_, _ = fmt.Fprintf(w, "  %s  %s  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", maxEndpointLen), strings.Repeat("-", 20), strings.Repeat("-", 16))

	// Print profiles
	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}

		name := p.Name
		if len(name) > maxNameLen {
			name = name[:maxNameLen-3] + "..."
		}

		endpoint := p.Endpoint
		if len(endpoint) > maxEndpointLen {
			endpoint = endpoint[:maxEndpointLen-3] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s %-*s  %-*s  %-20s  %s\n", marker, maxNameLen, name, maxEndpointLen, endpoint, formatOwner(p), maskSecret(p.Token, showSecrets))
	}

	return nil
}

// FormatProfileShow formats a single profile as human-readable text.
func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	_, _ = fmt.Fprintf(w, "Name:     %s", profile.Name)
	if isDefault {
		_, _ = fmt.Fprintf(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Endpoint: %s\n", profile.Endpoint)
	_, _ = fmt.Fprintf(w, "Owner:    %s\n", formatOwner(&profile))
	_, _ = fmt.Fprintf(w, "Token:    %s\n", maskSecret(profile.Token, showSecrets))
	return nil
}

type jsonProfile struct {
	Name      string `json:"name"`
	Endpoint  string `json:"endpoint"`
	OwnerName string `json:"owner_name,omitempty"`
	OwnerID   string `json:"owner_id,omitempty"`
	Token     string `json:"token"`
	Default   bool   `json:"default"`
}

func toJSONProfile(p *Profile, isDefault, showSecrets bool) jsonProfile {
	return jsonProfile{
		Name:      p.Name,
		Endpoint:  p.Endpoint,
		OwnerName: p.OwnerName,
		OwnerID:   p.OwnerID,
		Token:     maskSecret(p.Token, showSecrets),
		Default:   isDefault,
	}
}

// FormatProfileList formats a list of profiles as JSON.
func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	output := struct {
		Profiles []jsonProfile `json:"profiles"`
	}{
		Profiles: make([]jsonProfile, len(profiles)),
	}

	for i := range profiles {
		output.Profiles[i] = toJSONProfile(&profiles[i], profiles[i].Name == defaultName, showSecrets)
	}

	return writeJSON(w, output)
}

// FormatProfileShow formats a single profile as JSON.
func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	return writeJSON(w, toJSONProfile(&profile, isDefault, showSecrets))
}

func formatOwner(p *Profile) string {
	if p.OwnerName == "" && p.OwnerID == "" {
		return "(not set)"
	}
	return p.OwnerName + "/" + p.OwnerID
}

// maskSecret masks a secret string, showing only first 4 and last 4 characters.
// If showSecrets is true, returns the original value.
// If the secret is too short, returns all asterisks.
func maskSecret(secret string, showSecrets bool) string {
	if showSecrets {
		return secret
	}
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
