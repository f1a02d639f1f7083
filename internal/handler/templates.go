package handler

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	twmerge "github.com/Oudwins/tailwind-merge-go"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DukeRupert/loadshare/internal/csrf"
	"github.com/DukeRupert/loadshare/internal/domain"
)

// now is replaced in tests.
var now = time.Now

// TemplateFuncs returns a FuncMap with custom template functions
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},

		// Date/Time functions
		"year": func() int {
			return now().Year()
		},
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,
		"formatDateISO": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(domain.PickupDateLayout)
		},
		"timeAgo": timeAgo,

		// String functions
		"lower": strings.ToLower,
		"title": func(v any) string {
			s := strings.ReplaceAll(fmt.Sprint(v), "_", " ")
			return cases.Title(language.English).String(s)
		},
		"truncate": truncate,
		"initials": initials,

		// Class merging: later classes win over conflicting earlier ones
		"cn": func(classes ...string) string {
			return twmerge.Merge(classes...)
		},

		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			dict := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil
				}
				dict[key] = values[i+1]
			}
			return dict
		},

		"uuidString": func(u uuid.UUID) string {
			return u.String()
		},

		// Form helpers
		"csrfField": func(token string) template.HTML {
			return template.HTML(fmt.Sprintf(`<input type="hidden" name="%s" value="%s">`,
				csrf.FormFieldName, template.HTMLEscapeString(token)))
		},

		"statusColor": statusColor,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006 3:04 PM")
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now().Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return formatDate(t)
	}
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length]) + "..."
}

func initials(name string) string {
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		b.WriteRune([]rune(part)[0])
		if b.Len() >= 2 {
			break
		}
	}
	return strings.ToUpper(b.String())
}

// statusColor accepts any so templates can pass domain.LoadStatus directly.
func statusColor(status any) string {
	switch domain.LoadStatus(fmt.Sprint(status)) {
	case domain.LoadStatusPosted:
		return "bg-blue-100 text-blue-800"
	case domain.LoadStatusClaimed:
		return "bg-yellow-100 text-yellow-800"
	case domain.LoadStatusAccepted:
		return "bg-indigo-100 text-indigo-800"
	case domain.LoadStatusInTransit:
		return "bg-orange-100 text-orange-800"
	case domain.LoadStatusDelivered:
		return "bg-green-100 text-green-800"
	default:
		return "bg-gray-100 text-gray-600"
	}
}
