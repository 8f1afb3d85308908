package resources

// ResourceLease is the token a caller holds while it uses a resource. It
// decrements the slot's reference counter exactly once, on Release. Leases
// are passed by pointer; Move transfers ownership and leaves the source
// lease inert.
type ResourceLease struct {
	manager *ResourceManager
	handle  ResourceHandle
}

// Handle returns the slot address this lease pins.
func (l *ResourceLease) Handle() ResourceHandle {
	return l.handle
}

// Release returns the reference. Releasing twice, or releasing a moved-from
// lease, is harmless.
func (l *ResourceLease) Release() {
	if l == nil || l.manager == nil {
		return
	}
	manager := l.manager
	l.manager = nil
	manager.ReleaseResource(l.handle)
}

// Move transfers the lease to a new token and neuters the receiver.
func (l *ResourceLease) Move() *ResourceLease {
	out := &ResourceLease{manager: l.manager, handle: l.handle}
	l.manager = nil
	return out
}
