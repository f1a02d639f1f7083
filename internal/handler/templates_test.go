package handler

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/DukeRupert/loadshare/internal/domain"
)

func TestTimeAgo(t *testing.T) {
	fixed := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{time.Hour, "1 hour ago"},
		{3 * time.Hour, "3 hours ago"},
		{24 * time.Hour, "yesterday"},
		{3 * 24 * time.Hour, "3 days ago"},
		{30 * 24 * time.Hour, "Feb 8, 2025"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, timeAgo(fixed.Add(-tt.ago)))
		})
	}
	assert.Empty(t, timeAgo(time.Time{}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "héll...", truncate("héllo wörld", 4))
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "OO", initials("Olivia Owner"))
	assert.Equal(t, "D", initials("dan"))
	assert.Equal(t, "MJ", initials("Mary Jane Watson"))
	assert.Empty(t, initials(""))
}

func TestStatusColor(t *testing.T) {
	assert.Equal(t, "bg-blue-100 text-blue-800", statusColor(domain.LoadStatusPosted))
	assert.Equal(t, "bg-green-100 text-green-800", statusColor("delivered"))
	assert.Equal(t, "bg-gray-100 text-gray-600", statusColor("lost"))
}

func TestTemplateFuncs_ClassMerge(t *testing.T) {
	cn := TemplateFuncs()["cn"].(func(...string) string)
	got := strings.Fields(cn("rounded-full px-2 bg-blue-100", "bg-green-100"))
	assert.ElementsMatch(t, []string{"rounded-full", "px-2", "bg-green-100"}, got)
}
