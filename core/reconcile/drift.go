package reconcile

import "sort"

// IDSet is an unordered set of record identifiers.
type IDSet map[string]struct{}

// NewIDSet builds a set from the given ids, dropping duplicates.
func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Minus returns the sorted ids present in s but not in other.
func (s IDSet) Minus(other IDSet) []string {
	out := make([]string, 0)
	for id := range s {
		if !other.Has(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Sorted returns the ids of the set in ascending order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// DriftKind is a bit set of the drift categories found in one attempt.
type DriftKind uint8

const (
	// KindClean means the two stores agree.
	KindClean DriftKind = 0
	// KindMissing means Primary has rows the Mirror lacks.
	KindMissing DriftKind = 1 << iota
	// KindDuplicate means the Mirror has rows Primary does not.
	KindDuplicate
	// KindStatusMismatch means the Mirror holds a stale status.
	KindStatusMismatch
)

// Has reports whether every category of other is set in k.
func (k DriftKind) Has(other DriftKind) bool {
	return k&other == other
}

var detectionByKind = map[DriftKind]DetectionStatus{
	KindClean:                                        DetectionSuccess,
	KindMissing:                                      DetectionMissing,
	KindDuplicate:                                    DetectionDuplicate,
	KindStatusMismatch:                               DetectionStatusMismatch,
	KindMissing | KindDuplicate:                      DetectionMissingAndDuplicate,
	KindMissing | KindStatusMismatch:                 DetectionMissingAndStatusMismatch,
	KindDuplicate | KindStatusMismatch:               DetectionDuplicateAndStatusMismatch,
	KindMissing | KindDuplicate | KindStatusMismatch: DetectionMissingDuplicateAndStatusMismatch,
}

var actionByKind = map[DriftKind]Action{
	KindClean:                                        ActionNone,
	KindMissing:                                      ActionAddMissing,
	KindDuplicate:                                    ActionRemoveDuplicates,
	KindStatusMismatch:                               ActionStatusReconcile,
	KindMissing | KindDuplicate:                      ActionAddMissingAndRemoveDuplicates,
	KindMissing | KindStatusMismatch:                 ActionAddMissingAndStatusReconcile,
	KindDuplicate | KindStatusMismatch:               ActionRemoveDuplicatesAndStatusReconcile,
	KindMissing | KindDuplicate | KindStatusMismatch: ActionAddMissingRemoveDuplicatesAndStatus,
}

// DetectionStatus maps the kind to the persisted detection status.
func (k DriftKind) DetectionStatus() DetectionStatus {
	return detectionByKind[k]
}

// Action maps the kind to the persisted repair action.
func (k DriftKind) Action() Action {
	return actionByKind[k]
}

// Drift is the transient result of comparing Primary against the Mirror.
type Drift struct {
	Missing    []string              `json:"missing"`
	Extra      []string              `json:"extra"`
	Mismatches map[string]StatusPair `json:"mismatches"`
}

// Diff computes the row-count drift between the two id sets.
func Diff(primary, mirror IDSet) Drift {
	return Drift{
		Missing:    primary.Minus(mirror),
		Extra:      mirror.Minus(primary),
		Mismatches: map[string]StatusPair{},
	}
}

// Kind classifies the drift.
func (d Drift) Kind() DriftKind {
	kind := KindClean
	if len(d.Missing) > 0 {
		kind |= KindMissing
	}
	if len(d.Extra) > 0 {
		kind |= KindDuplicate
	}
	if len(d.Mismatches) > 0 {
		kind |= KindStatusMismatch
	}
	return kind
}

// IsClean reports whether no drift was found.
func (d Drift) IsClean() bool {
	return d.Kind() == KindClean
}

// CompareStatuses returns the mirror ids whose status differs from Primary.
// Ids unknown to Primary are ignored; they are row-count drift, not status drift.
func CompareStatuses(mirror, primary map[string]string) map[string]StatusPair {
	out := make(map[string]StatusPair)
	for id, mirrorStatus := range mirror {
		primaryStatus, ok := primary[id]
		if !ok || primaryStatus == mirrorStatus {
			continue
		}
		out[id] = StatusPair{Mirror: mirrorStatus, Primary: primaryStatus}
	}
	return out
}
