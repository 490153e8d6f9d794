package domain

// CanMutate is the single-owner authorization gate. ownerID must come from the
// stored record, never from the request.
func CanMutate(requesterID, ownerID string) bool {
	return requesterID != "" && requesterID == ownerID
}
