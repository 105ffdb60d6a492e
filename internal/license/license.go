// Package license gathers second opinions from established detectors to
// sit alongside the shingle matcher's verdict.
package license

import (
	"slices"
	"strings"

	"github.com/go-enry/go-license-detector/v4/licensedb"
	"github.com/go-enry/go-license-detector/v4/licensedb/api"
	"github.com/go-enry/go-license-detector/v4/licensedb/filer"
	"github.com/google/licensecheck"

	"github.com/dsablic/licensematch/internal/model"
)

const confidenceThreshold = 0.85

// Detect returns the license a project directory declares in its top-level
// license files. Each file votes for the license it matches best; when
// separate files vote differently, as in dual-licensed projects, the result
// is an SPDX "OR" expression such as "Apache-2.0 OR MIT". It is empty when no
// file reaches the confidence threshold.
func Detect(dir string) string {
	f, err := filer.FromDirectory(dir)
	if err != nil {
		return ""
	}
	results, err := licensedb.Detect(f)
	if err != nil {
		return ""
	}
	return expression(fileVotes(results))
}

// fileVotes maps each scanned file to the license it matches best. Equal
// confidences go to the smaller id.
func fileVotes(results map[string]api.Match) map[string]string {
	type vote struct {
		id   string
		conf float32
	}
	best := make(map[string]vote)
	for id, match := range results {
		files := match.Files
		if len(files) == 0 {
			files = map[string]float32{match.File: match.Confidence}
		}
		for file, conf := range files {
			if conf < confidenceThreshold {
				continue
			}
			if v, ok := best[file]; !ok || conf > v.conf || (conf == v.conf && id < v.id) {
				best[file] = vote{id: id, conf: conf}
			}
		}
	}

	votes := make(map[string]string, len(best))
	for file, v := range best {
		votes[file] = v.id
	}
	return votes
}

func expression(votes map[string]string) string {
	ids := make([]string, 0, len(votes))
	for _, id := range votes {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return strings.Join(ids, " OR ")
}

// Crosscheck scans data with licensecheck. It returns nil when no known
// license text is found. Per-license percentages are the share of the input
// bytes each match spans.
func Crosscheck(data []byte) *model.Crosscheck {
	cov := licensecheck.Scan(data)
	if len(cov.Match) == 0 {
		return nil
	}

	out := &model.Crosscheck{Percent: cov.Percent}
	seen := make(map[string]int)
	for _, m := range cov.Match {
		pct := 0.0
		if len(data) > 0 {
			pct = 100 * float64(m.End-m.Start) / float64(len(data))
		}
		if i, ok := seen[m.ID]; ok {
			out.Matches[i].Percent += pct
			continue
		}
		seen[m.ID] = len(out.Matches)
		out.Matches = append(out.Matches, model.CrosscheckMatch{ID: m.ID, Percent: pct})
	}
	return out
}
