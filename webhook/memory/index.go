package memory

import (
	"sort"

	"github.com/marcelsud/webhook-ledger/webhook"
)

// entry is one id held by an index, ordered by receivedAt then id
type entry struct {
	receivedAt int64
	id         string
}

func (e entry) less(o entry) bool {
	if e.receivedAt != o.receivedAt {
		return e.receivedAt < o.receivedAt
	}
	return e.id < o.id
}

/* secondaryIndex maps (index name, key) to the ordered set of record ids indexed under it.
 * It is updated incrementally by the store on every insert, patch and delete.
 */
type secondaryIndex struct {
	sets map[string][]entry
}

func newSecondaryIndex() *secondaryIndex {
	return &secondaryIndex{sets: make(map[string][]entry)}
}

func setName(index webhook.Index, key string) string {
	return index.String() + ":" + key
}

// add indexes wh under every index it participates in
func (x *secondaryIndex) add(wh webhook.Webhook) {
	for _, index := range webhook.Indexes() {
		if key, ok := index.Key(wh); ok {
			x.insert(setName(index, key), entry{receivedAt: wh.ReceivedAt.UnixMilli(), id: wh.ID})
		}
	}
}

// remove drops wh from every index it participates in
func (x *secondaryIndex) remove(wh webhook.Webhook) {
	for _, index := range webhook.Indexes() {
		if key, ok := index.Key(wh); ok {
			x.delete(setName(index, key), entry{receivedAt: wh.ReceivedAt.UnixMilli(), id: wh.ID})
		}
	}
}

// move re-indexes a record whose indexed fields changed from old to updated
func (x *secondaryIndex) move(old, updated webhook.Webhook) {
	for _, index := range webhook.Indexes() {
		oldKey, oldOK := index.Key(old)
		newKey, newOK := index.Key(updated)
		if oldKey == newKey && oldOK == newOK {
			continue
		}
		e := entry{receivedAt: old.ReceivedAt.UnixMilli(), id: old.ID}
		if oldOK {
			x.delete(setName(index, oldKey), e)
		}
		if newOK {
			x.insert(setName(index, newKey), e)
		}
	}
}

// lookup returns the ids under (index, key) in ascending receivedAt order
func (x *secondaryIndex) lookup(index webhook.Index, key string) []string {
	if index == webhook.ByReceivedAt {
		key = ""
	}
	set := x.sets[setName(index, key)]
	ids := make([]string, len(set))
	for i, e := range set {
		ids[i] = e.id
	}
	return ids
}

func (x *secondaryIndex) insert(name string, e entry) {
	set := x.sets[name]
	i := sort.Search(len(set), func(i int) bool { return !set[i].less(e) })
	if i < len(set) && set[i] == e {
		return
	}
	set = append(set, entry{})
	copy(set[i+1:], set[i:])
	set[i] = e
	x.sets[name] = set
}

func (x *secondaryIndex) delete(name string, e entry) {
	set := x.sets[name]
	i := sort.Search(len(set), func(i int) bool { return !set[i].less(e) })
	if i == len(set) || set[i] != e {
		return
	}
	set = append(set[:i], set[i+1:]...)
	if len(set) == 0 {
		delete(x.sets, name)
		return
	}
	x.sets[name] = set
}
