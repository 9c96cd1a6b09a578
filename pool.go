package wabisabi

import "sync"

// CredentialPool holds the credentials a client can still present in a round.
// UpdateCredentials is its only mutation.
type CredentialPool struct {
	mu          sync.RWMutex
	credentials []*Credential
}

func NewCredentialPool() *CredentialPool {
	return &CredentialPool{}
}

// UpdateCredentials removes oldCredentials and adds newCredentials in one step.
func (p *CredentialPool) UpdateCredentials(newCredentials, oldCredentials []*Credential) {
	old := make(map[macKey]struct{}, len(oldCredentials))
	for _, c := range oldCredentials {
		old[c.Mac.key()] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	kept := make([]*Credential, 0, len(p.credentials)+len(newCredentials))
	for _, c := range p.credentials {
		if _, remove := old[c.Mac.key()]; !remove {
			kept = append(kept, c)
		}
	}
	p.credentials = append(kept, newCredentials...)
}

func (p *CredentialPool) Credentials() []*Credential {
	return p.filter(func(*Credential) bool { return true })
}

func (p *CredentialPool) ZeroValueCredentials() []*Credential {
	return p.filter((*Credential).IsZero)
}

func (p *CredentialPool) ValuableCredentials() []*Credential {
	return p.filter(func(c *Credential) bool { return !c.IsZero() })
}

func (p *CredentialPool) Balance() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var sum int64
	for _, c := range p.credentials {
		sum += c.Value
	}
	return sum
}

func (p *CredentialPool) filter(keep func(*Credential) bool) []*Credential {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*Credential
	for _, c := range p.credentials {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
