package index

import (
	"sort"
	"time"
)

// TemporalIndex maintains five projections of an engram's timestamp:
// year, year*100+month, year*10000+month*100+day, hour-of-day bucket,
// and a most-recent-first recency list.
type TemporalIndex struct {
	byYear  map[int]map[string]struct{}
	byMonth map[int]map[string]struct{}
	byDay   map[int]map[string]struct{}
	byHour  map[int]map[string]struct{}

	current map[string]time.Time
	recency []string // most-recent-first
}

// NewTemporalIndex returns an empty temporal index.
func NewTemporalIndex() *TemporalIndex {
	return &TemporalIndex{
		byYear:  map[int]map[string]struct{}{},
		byMonth: map[int]map[string]struct{}{},
		byDay:   map[int]map[string]struct{}{},
		byHour:  map[int]map[string]struct{}{},
		current: map[string]time.Time{},
	}
}

func yearBucket(t time.Time) int  { return t.UTC().Year() }
func monthBucket(t time.Time) int { u := t.UTC(); return u.Year()*100 + int(u.Month()) }
func dayBucket(t time.Time) int   { u := t.UTC(); return u.Year()*10000 + int(u.Month())*100 + u.Day() }
func hourBucket(t time.Time) int  { return t.UTC().Hour() }

// Add indexes id under ts's projections. Idempotent; re-indexes on update.
func (idx *TemporalIndex) Add(id string, ts time.Time) {
	idx.Remove(id)
	idx.current[id] = ts
	addToInt(idx.byYear, yearBucket(ts), id)
	addToInt(idx.byMonth, monthBucket(ts), id)
	addToInt(idx.byDay, dayBucket(ts), id)
	addToInt(idx.byHour, hourBucket(ts), id)
	idx.insertRecency(id, ts)
}

// Remove deletes id from every projection and the recency list.
func (idx *TemporalIndex) Remove(id string) {
	ts, ok := idx.current[id]
	if !ok {
		return
	}
	removeFromInt(idx.byYear, yearBucket(ts), id)
	removeFromInt(idx.byMonth, monthBucket(ts), id)
	removeFromInt(idx.byDay, dayBucket(ts), id)
	removeFromInt(idx.byHour, hourBucket(ts), id)
	delete(idx.current, id)

	for i, rid := range idx.recency {
		if rid == id {
			idx.recency = append(idx.recency[:i], idx.recency[i+1:]...)
			break
		}
	}
}

func (idx *TemporalIndex) insertRecency(id string, ts time.Time) {
	pos := sort.Search(len(idx.recency), func(i int) bool {
		return idx.current[idx.recency[i]].Before(ts)
	})
	idx.recency = append(idx.recency, "")
	copy(idx.recency[pos+1:], idx.recency[pos:])
	idx.recency[pos] = id
}

// Timestamp returns the currently indexed timestamp for id, if any.
func (idx *TemporalIndex) Timestamp(id string) (time.Time, bool) {
	ts, ok := idx.current[id]
	return ts, ok
}

// ByYear returns the engram ids created in the given year.
func (idx *TemporalIndex) ByYear(year int) []string { return sortedKeys(idx.byYear[year]) }

// ByMonth returns the engram ids created in the given year*100+month.
func (idx *TemporalIndex) ByMonth(yearMonth int) []string { return sortedKeys(idx.byMonth[yearMonth]) }

// ByDay returns the engram ids created on the given year*10000+month*100+day.
func (idx *TemporalIndex) ByDay(yearMonthDay int) []string { return sortedKeys(idx.byDay[yearMonthDay]) }

// ByHour returns the engram ids created in the given hour-of-day bucket (0-23).
func (idx *TemporalIndex) ByHour(hour int) []string { return sortedKeys(idx.byHour[hour]) }

// Before returns engram ids with timestamp strictly before t.
func (idx *TemporalIndex) Before(t time.Time) []string {
	var out []string
	for id, ts := range idx.current {
		if ts.Before(t) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// After returns engram ids with timestamp strictly after t.
func (idx *TemporalIndex) After(t time.Time) []string {
	var out []string
	for id, ts := range idx.current {
		if ts.After(t) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Between returns engram ids with t0 <= timestamp <= t1.
func (idx *TemporalIndex) Between(t0, t1 time.Time) []string {
	var out []string
	for id, ts := range idx.current {
		if !ts.Before(t0) && !ts.After(t1) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// MostRecent returns the k most recently timestamped engram ids.
func (idx *TemporalIndex) MostRecent(k int) []string {
	if k > len(idx.recency) {
		k = len(idx.recency)
	}
	out := make([]string, k)
	copy(out, idx.recency[:k])
	return out
}

func addToInt(m map[int]map[string]struct{}, key int, value string) {
	if m[key] == nil {
		m[key] = map[string]struct{}{}
	}
	m[key][value] = struct{}{}
}

func removeFromInt(m map[int]map[string]struct{}, key int, value string) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, value)
	if len(set) == 0 {
		delete(m, key)
	}
}
