package ircd

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shutterbug2000/wifiplazad/internal/lobby"
)

// lobbyRNG is a single shared source for lobby generation. math/rand.Rand is
// not safe for concurrent use, so access is serialized with its own small
// mutex rather than reusing the server's registry lock.
var (
	lobbyRNGMu sync.Mutex
	lobbyRNG   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// generateLobbyBlob produces a fresh DWC-encoded random lobby record, used
// to seed a channel the first time it is created.
func generateLobbyBlob() string {
	lobbyRNGMu.Lock()
	l := lobby.GenerateRandomLobby(lobbyRNG, time.Now())
	lobbyRNGMu.Unlock()
	return lobby.DWCEncode(l.Marshal())
}
