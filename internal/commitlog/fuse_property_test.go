package commitlog_test

import (
	"fmt"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"gitreel/internal/commitlog"
)

func buildSources(timestamps ...[]int64) []commitlog.Source {
	sources := make([]commitlog.Source, 0, len(timestamps))
	for i, ts := range timestamps {
		sorted := slices.Clone(ts)
		slices.Sort(sorted)
		records := make([]commitlog.Record, 0, len(sorted))
		for pos, t := range sorted {
			records = append(records, commitlog.Record{
				Timestamp: t,
				Author:    fmt.Sprintf("dev%d", i),
				Change:    commitlog.ChangeAdd,
				Path:      fmt.Sprintf("%d", pos),
			})
		}
		sources = append(sources, commitlog.Source{
			Prefix:  fmt.Sprintf("/repo%d/", i),
			Records: commitlog.Slice(records),
		})
	}
	return sources
}

func TestFuseOrderingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	stamps := gen.SliceOf(gen.Int64Range(0, 25))

	properties.Property("fused output is a sorted total order over all input records", prop.ForAll(
		func(a, b, c []int64) bool {
			fused, err := commitlog.Collect(commitlog.Fuse(buildSources(a, b, c)))
			if err != nil {
				return false
			}
			if len(fused) != len(a)+len(b)+len(c) {
				return false
			}
			for i := 1; i < len(fused); i++ {
				prev, cur := fused[i-1], fused[i]
				if prev.Timestamp > cur.Timestamp {
					return false
				}
				if prev.Timestamp == cur.Timestamp && prev.PathPrefix > cur.PathPrefix {
					return false
				}
			}
			return true
		},
		stamps, stamps, stamps,
	))

	properties.Property("fusing identical inputs twice yields identical output", prop.ForAll(
		func(a, b []int64) bool {
			first, err := commitlog.Collect(commitlog.Fuse(buildSources(a, b)))
			if err != nil {
				return false
			}
			second, err := commitlog.Collect(commitlog.Fuse(buildSources(a, b)))
			if err != nil {
				return false
			}
			return slices.Equal(first, second)
		},
		stamps, stamps,
	))

	properties.Property("intra-repository order is preserved", prop.ForAll(
		func(a, b []int64) bool {
			fused, err := commitlog.Collect(commitlog.Fuse(buildSources(a, b)))
			if err != nil {
				return false
			}
			last := map[string]int{}
			for _, r := range fused {
				var pos int
				fmt.Sscanf(r.Path, "%d", &pos)
				if prev, ok := last[r.PathPrefix]; ok && pos <= prev {
					return false
				}
				last[r.PathPrefix] = pos
			}
			return true
		},
		stamps, stamps,
	))

	properties.TestingRun(t)
}
