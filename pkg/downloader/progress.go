package downloader

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"vodarchiver/pkg/models"
)

// yt-dlp with --newline emits lines like:
//
//	[download]  42.3% of 1.24GiB at 3.21MiB/s ETA 05:10
//	[download] 100% of 987.65MiB in 00:03:21
var progressLine = regexp.MustCompile(
	`^\[download\]\s+([\d.]+)% of ~?\s*([\d.]+)(KiB|MiB|GiB|TiB|B)(?:\s+at\s+([\d.]+)(KiB|MiB|GiB|B)/s)?(?:\s+ETA\s+([\d:]+))?`)

var unitBytes = map[string]float64{
	"B":   1,
	"KiB": 1 << 10,
	"MiB": 1 << 20,
	"GiB": 1 << 30,
	"TiB": 1 << 40,
}

// parseProgressLine extracts a progress snapshot from one line of yt-dlp
// output. Lines that are not download progress return ok=false.
func parseProgressLine(line string) (models.Progress, bool) {
	m := progressLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return models.Progress{}, false
	}

	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return models.Progress{}, false
	}

	totalVal, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return models.Progress{}, false
	}
	total := int64(totalVal * unitBytes[m[3]])

	p := models.Progress{
		Done:  int64(percent / 100 * float64(total)),
		Total: total,
	}

	if m[4] != "" {
		rateVal, err := strconv.ParseFloat(m[4], 64)
		if err == nil {
			p.Rate = rateVal * unitBytes[m[5]]
		}
	}
	if m[6] != "" {
		p.ETA = parseClock(m[6])
	}

	return p, true
}

// parseClock converts "MM:SS" or "HH:MM:SS" to a duration.
func parseClock(s string) time.Duration {
	parts := strings.Split(s, ":")
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}
