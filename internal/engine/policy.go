package engine

// PolicyMode selects how AddPacket places a packet in the producer's
// outgoing list.
type PolicyMode int

const (
	// PolicyAppend pushes a new packet with a fresh id (new card).
	PolicyAppend PolicyMode = iota
	// PolicyReplaceByID overwrites the packet with the target id in place,
	// preserving that id. Used for drag-to-replace interactions.
	PolicyReplaceByID
	// PolicyLiveUpdate overwrites the first outgoing packet of the same
	// kind in place, preserving its id. Used by continuously-updating
	// producers such as a ticking value.
	PolicyLiveUpdate
)

// Policy is the placement policy for AddPacket. The zero value is append.
type Policy struct {
	Mode     PolicyMode
	TargetID string // packet id for PolicyReplaceByID
}

// Append returns the default policy: push a new packet.
func Append() Policy {
	return Policy{Mode: PolicyAppend}
}

// ReplaceByID returns a policy that overwrites the packet with the given
// id in place. If the id is not present in the producer's outgoing list,
// AddPacket falls back to append so the produced data still lands.
func ReplaceByID(targetID string) Policy {
	return Policy{Mode: PolicyReplaceByID, TargetID: targetID}
}

// LiveUpdate returns a policy that overwrites the first outgoing packet of
// the same kind, falling back to append when none exists yet.
func LiveUpdate() Policy {
	return Policy{Mode: PolicyLiveUpdate}
}
