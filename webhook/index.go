package webhook

/* Index names one of the four access paths over the webhook table
 * BySource, ByStatus and ByUser are equality indexes, ByReceivedAt is an ordering index
 */
type Index int

const (
	BySource Index = iota + 1
	ByStatus
	ByUser
	ByReceivedAt
)

// String returns the persisted index name
func (i Index) String() string {
	switch i {
	case BySource:
		return "by_source"
	case ByStatus:
		return "by_status"
	case ByUser:
		return "by_user"
	case ByReceivedAt:
		return "by_received_at"
	default:
		return "unknown"
	}
}

// Key returns the value a record is indexed under for the given index.
// ok is false when the record does not participate in the index (no owner on ByUser).
func (i Index) Key(wh Webhook) (key string, ok bool) {
	switch i {
	case BySource:
		return wh.Source, true
	case ByStatus:
		return wh.Status.String(), true
	case ByUser:
		return wh.UserID, wh.UserID != ""
	case ByReceivedAt:
		return "", true
	default:
		return "", false
	}
}

// Indexes lists every secondary index maintained by a store
func Indexes() []Index {
	return []Index{BySource, ByStatus, ByUser, ByReceivedAt}
}
