package server

// wouldOrphanAdmins reports whether removing the given user from the
// active admin set would leave it empty. It operates on an explicit
// snapshot so callers decide when the set is read relative to the
// mutation; the check stays trivially testable without a store.
func wouldOrphanAdmins(activeAdminIDs []string, excluding string) bool {
	for _, id := range activeAdminIDs {
		if id != excluding {
			return false
		}
	}
	return true
}
