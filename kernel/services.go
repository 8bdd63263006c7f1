package kernel

import "github.com/rugo-os/rugo/amd64"

// ServiceEntry is a name->endpoint registry entry (§3, §4.7): an active
// flag, a bounded name, and the endpoint handle it resolves to. Names are
// compared by length-and-bytes equality; at most one active entry exists
// for any given name (§8.3).
type ServiceEntry struct {
	Active   bool
	Name     [MaxServiceName]byte
	NameLen  int
	Endpoint int
}

func sameName(e *ServiceEntry, name []byte) bool {
	if e.NameLen != len(name) {
		return false
	}
	for i := 0; i < e.NameLen; i++ {
		if e.Name[i] != name[i] {
			return false
		}
	}
	return true
}

// Register implements syscall 11 (§4.7): svc_register(name,len,ep).
// Registering an already-present name overwrites its endpoint; otherwise
// the first free slot is used. Returns ErrBadCap if the registry is full
// and the name isn't already present.
func (k *KernelState) Register(nameAddr, nameLen, ep uint64) SysErr {
	if nameLen == 0 || nameLen > MaxServiceName {
		return ErrBadArg
	}
	if ep >= MaxEndpoints {
		return ErrBadArg
	}

	var name [MaxServiceName]byte
	n := int(nameLen)
	if !amd64.CopyinUser(name[:n], nameAddr) {
		return ErrBadUserPtr
	}

	free := -1
	for i := range k.Services {
		s := &k.Services[i]
		if s.Active && sameName(s, name[:n]) {
			s.Endpoint = int(ep)
			return ErrNone
		}
		if !s.Active && free < 0 {
			free = i
		}
	}

	if free < 0 {
		return ErrBadCap
	}

	s := &k.Services[free]
	s.Active = true
	s.NameLen = n
	copy(s.Name[:], name[:n])
	s.Endpoint = int(ep)

	return ErrNone
}

// Lookup implements syscall 12 (§4.7): svc_lookup(name,len). The registry is
// a flat array; lookup is O(n).
func (k *KernelState) Lookup(nameAddr, nameLen uint64) (ep uint64, err SysErr) {
	if nameLen == 0 || nameLen > MaxServiceName {
		return 0, ErrBadArg
	}

	var name [MaxServiceName]byte
	n := int(nameLen)
	if !amd64.CopyinUser(name[:n], nameAddr) {
		return 0, ErrBadUserPtr
	}

	for i := range k.Services {
		s := &k.Services[i]
		if s.Active && sameName(s, name[:n]) {
			return uint64(s.Endpoint), ErrNone
		}
	}

	return 0, ErrNotFound
}
