package blind

import (
	"sync"

	"github.com/Caqil/blind-ecdsa/pkg/logger"
)

// IndexGuard wraps a CustodianSession with a refuse-reuse policy: each
// index is signed for at most once. Index freshness is a protocol
// requirement the math layer deliberately does not enforce; custodians
// that want it enforced in-process wrap their session in a guard.
//
// The guard tracks used indices in memory only. A custodian that restarts
// must restore the used set from its own records before serving requests.
type IndexGuard struct {
	session *CustodianSession
	log     *logger.Logger

	mu   sync.Mutex
	used map[uint32]struct{}
}

// NewIndexGuard wraps session with a fresh used-index set. A nil log
// disables guard logging.
func NewIndexGuard(session *CustodianSession, log *logger.Logger) (*IndexGuard, error) {
	if session == nil {
		return nil, ErrNilSession
	}
	if log == nil {
		log = logger.Nop()
	}
	return &IndexGuard{
		session: session,
		log:     log,
		used:    make(map[uint32]struct{}),
	}, nil
}

// MarkUsed records an index as consumed without signing, e.g. when
// restoring state after a restart.
func (g *IndexGuard) MarkUsed(indices ...uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, i := range indices {
		g.used[i] = struct{}{}
	}
}

// SignBlindedHash signs through the wrapped session, refusing indices that
// have already produced a signature. The index is reserved before signing
// so concurrent requests for the same index cannot both succeed; it is
// released again if signing fails.
func (g *IndexGuard) SignBlindedHash(blindedHash []byte, i uint32) ([]byte, error) {
	g.mu.Lock()
	if _, ok := g.used[i]; ok {
		g.mu.Unlock()
		g.log.WarnEvent().Uint32("index", i).Msg("refused reuse of protocol index")
		return nil, ErrIndexReused
	}
	g.used[i] = struct{}{}
	g.mu.Unlock()

	sig, err := g.session.SignBlindedHash(blindedHash, i)
	if err != nil {
		g.mu.Lock()
		delete(g.used, i)
		g.mu.Unlock()
		return nil, err
	}

	return sig, nil
}
