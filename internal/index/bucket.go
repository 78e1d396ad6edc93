package index

// bucketOf buckets a value in [0,1] into 0..10 via floor(value*10), the
// scheme shared by the confidence index and the importance index.
func bucketOf(value float64) int {
	b := int(value * 10)
	if b < 0 {
		return 0
	}
	if b > 10 {
		return 10
	}
	return b
}

// BucketIndex buckets engram ids by a real value in [0,1] into 11 buckets
// (0..10), supporting "value >= threshold" range queries as the union of
// the buckets from floor(threshold*10) through 10. Used by both the
// confidence index and the importance index.
type BucketIndex struct {
	buckets [11]map[string]struct{}
	current map[string]float64
}

// NewBucketIndex returns an empty bucket index.
func NewBucketIndex() *BucketIndex {
	bi := &BucketIndex{current: map[string]float64{}}
	for i := range bi.buckets {
		bi.buckets[i] = map[string]struct{}{}
	}
	return bi
}

// Add indexes id under value's bucket. Idempotent and re-buckets on update.
func (bi *BucketIndex) Add(id string, value float64) {
	if prev, ok := bi.current[id]; ok {
		delete(bi.buckets[bucketOf(prev)], id)
	}
	bi.current[id] = value
	bi.buckets[bucketOf(value)][id] = struct{}{}
}

// Remove deletes id from the index.
func (bi *BucketIndex) Remove(id string) {
	value, ok := bi.current[id]
	if !ok {
		return
	}
	delete(bi.buckets[bucketOf(value)], id)
	delete(bi.current, id)
}

// AtLeast returns every id whose indexed value is >= threshold.
func (bi *BucketIndex) AtLeast(threshold float64) []string {
	start := bucketOf(threshold)
	var out []string
	for b := start; b <= 10; b++ {
		for id := range bi.buckets[b] {
			// bucketOf is a floor, so a bucket can contain values just
			// below threshold at its lower boundary; filter precisely.
			if bi.current[id] >= threshold {
				out = append(out, id)
			}
		}
	}
	return out
}

// Value returns the currently indexed value for id, if any.
func (bi *BucketIndex) Value(id string) (float64, bool) {
	v, ok := bi.current[id]
	return v, ok
}
