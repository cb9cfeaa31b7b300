package ui

import "strings"

type shortcut struct {
	keys  string
	label string
}

// Shortcuts is the key help shown in the status bar.
type Shortcuts []shortcut

func NewShortcuts(keysAndLabels ...string) *Shortcuts {
	if len(keysAndLabels)%2 != 0 {
		panic("shortcuts must be in pairs")
	}
	shortcuts := make(Shortcuts, len(keysAndLabels)/2)
	for i := 0; i < len(keysAndLabels); i += 2 {
		shortcuts[i/2] = shortcut{
			keys:  keysAndLabels[i],
			label: keysAndLabels[i+1],
		}
	}
	return &shortcuts
}

func (s *Shortcuts) Add(keys, label string) *Shortcuts {
	*s = append(*s, shortcut{keys: keys, label: label})
	return s
}

func (s *Shortcuts) AddIf(b bool, keys, label string) *Shortcuts {
	if b {
		s.Add(keys, label)
	}
	return s
}

func (s *Shortcuts) Render(theme Theme) string {
	parts := make([]string, 0, len(*s))
	for _, sc := range *s {
		parts = append(parts, sc.keys+" "+theme.MutedTextStyle.Render(sc.label))
	}
	return strings.Join(parts, theme.MutedTextStyle.Render(", "))
}
