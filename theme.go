package dave

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the app
// automatically matches any color scheme.
type Theme struct {
	UserMsg int // User question accent
	Code    int // Code group header
	Output  int // Code output header
	Error   int // Error messages
	Success int // Completed code groups, saved files
	Muted   int // Status bar, placeholders
	CodeBg  int // Code block background
	Accent  int // Headings, preamble label
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		UserMsg: 4,
		Code:    3,
		Output:  6,
		Error:   1,
		Success: 2,
		Muted:   8,
		CodeBg:  0,
		Accent:  5,
	}
}
