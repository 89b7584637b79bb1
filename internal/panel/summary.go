// ABOUTME: Aggregates for the admin dashboard: role distribution, action counts, security status
// ABOUTME: Pure functions over normalized records; order of first appearance is preserved

package panel

import "github.com/2389/vault-dashboard/internal/normalize"

const (
	// actionWindow bounds how many recent logs feed the action counts.
	actionWindow = 50
	recentLogs   = 5
)

// Count is one labelled tally.
type Count struct {
	Label string
	N     int
}

// Security is the integrity summary shown on the dashboard. Until a
// verification has been loaded it reports 100% valid.
type Security struct {
	Verified     bool
	TotalLogs    int
	ValidLogs    int
	InvalidLogs  int
	ValidPercent int
	Intrusion    bool
}

// Summary is the admin dashboard model.
type Summary struct {
	TotalUsers       int
	TotalLogs        int
	RoleDistribution []Count
	ActionCounts     []Count
	RecentLogs       []normalize.LogEntry
	Security         Security
}

// Summarize builds the dashboard model. ver may be nil.
func Summarize(users []normalize.User, logs []normalize.LogEntry, ver *normalize.Verification) Summary {
	s := Summary{
		TotalUsers:       len(users),
		TotalLogs:        len(logs),
		RoleDistribution: tally(len(users), func(i int) string { return users[i].Role }),
		ActionCounts:     tally(min(len(logs), actionWindow), func(i int) string { return logs[i].Action }),
		RecentLogs:       append([]normalize.LogEntry{}, logs[:min(len(logs), recentLogs)]...),
		Security:         Security{ValidPercent: 100},
	}
	if ver != nil {
		s.Security = Security{
			Verified:     true,
			TotalLogs:    ver.TotalLogs,
			ValidLogs:    ver.ValidLogs,
			InvalidLogs:  ver.InvalidLogs,
			ValidPercent: 100,
			Intrusion:    ver.Intrusion(),
		}
		if ver.TotalLogs > 0 {
			s.Security.ValidPercent = ver.ValidLogs * 100 / ver.TotalLogs
		}
	}
	return s
}

func tally(n int, label func(int) string) []Count {
	out := []Count{}
	index := map[string]int{}
	for i := range n {
		l := label(i)
		if at, ok := index[l]; ok {
			out[at].N++
			continue
		}
		index[l] = len(out)
		out = append(out, Count{Label: l, N: 1})
	}
	return out
}
