package source

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nuestro-pulso/pulso-search/internal/textnorm"
)

// Scoring constants are product tuning values; keep them as they are.
const (
	RecencyWindowHours = 168.0
	EngagementScale    = 1000.0
	RecencyWeight      = 0.3
	EngagementWeight   = 0.7
	LikeWeight         = 10

	DescriptionLimit = 150
	ellipsis         = "..."
)

var decorativeMarkers = []string{"🔴", "🚨", "📺", "⚡", "🔥", "✅", "❗", "‼️", "👉", "📢"}

// CleanTitle strips decorative emoji markers and collapses whitespace.
func CleanTitle(s string) string {
	for _, m := range decorativeMarkers {
		s = strings.ReplaceAll(s, m, " ")
	}
	return strings.Join(strings.Fields(s), " ")
}

// TruncateDescription caps s at DescriptionLimit runes, appending an ellipsis
// when something was cut.
func TruncateDescription(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= DescriptionLimit {
		return s
	}
	return strings.TrimRight(string(r[:DescriptionLimit]), " ") + ellipsis
}

// Thumbnails lists the resolutions an upstream may offer.
type Thumbnails struct {
	MaxRes  string
	High    string
	Medium  string
	Default string
}

// Best returns the highest resolution present: maxres, high, medium, default.
func (t Thumbnails) Best() string {
	for _, u := range []string{t.MaxRes, t.High, t.Medium, t.Default} {
		if u != "" {
			return u
		}
	}
	return ""
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseDuration turns an ISO-8601 duration such as PT1H5M3S into "1:05:03";
// without hours it yields "M:SS". Empty or unparseable input gives "0:00".
func ParseDuration(iso string) string {
	m := isoDuration.FindStringSubmatch(strings.TrimSpace(iso))
	if m == nil {
		return FormatDuration(0)
	}
	part := func(i int) int {
		if m[i] == "" {
			return 0
		}
		n, _ := strconv.Atoi(m[i])
		return n
	}
	total := part(1)*86400 + part(2)*3600 + part(3)*60 + part(4)
	return FormatDuration(total)
}

// FormatDuration renders seconds as H:MM:SS or M:SS.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Score combines recency and engagement: 0.3*recency + 0.7*engagement, where
// recency is the hours left in a 168h window and engagement is
// (views + 10*likes) / 1000.
func Score(views, likes int64, publishedAt, now time.Time) float64 {
	hours := math.Max(0, now.Sub(publishedAt).Hours())
	recency := math.Max(0, RecencyWindowHours-hours)
	engagement := float64(views+LikeWeight*likes) / EngagementScale
	return RecencyWeight*recency + EngagementWeight*engagement
}

// UpstreamOrderScore front-loads the upstream's own ordering.
func UpstreamOrderScore(index int) float64 {
	return 100 - 5*float64(index)
}

// TopicalKeywords are the places, outlets and people that make a chart entry
// relevant to the portal.
var TopicalKeywords = []string{
	"colombia", "colombiano", "colombiana", "bogota", "medellin", "cali", "barranquilla",
	"cartagena", "bucaramanga", "cucuta", "pereira", "manizales", "santa marta", "antioquia",
	"caracol", "rcn", "noticias uno", "el tiempo", "el espectador", "semana", "canal capital",
	"blu radio", "la fm", "citytv", "teleantioquia", "telepacifico",
	"petro", "francia marquez", "uribe", "congreso", "registraduria", "procuraduria",
	"fiscalia", "corte constitucional", "farc", "eln", "paz total",
}

// IsTopical reports whether any field mentions a topical keyword, ignoring
// case and accents.
func IsTopical(fields ...string) bool {
	return textnorm.ContainsAny(strings.Join(fields, " \n "), TopicalKeywords)
}
