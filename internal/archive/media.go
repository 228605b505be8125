package archive

import (
	"strings"
	"sync"

	"github.com/chatexport/chatexport/internal/models"
)

// MediaResolver matches asset pointers against extracted local files
// and remembers remote copies so each asset is uploaded once per run.
type MediaResolver struct {
	mu       sync.Mutex
	local    map[string]string        // extracted base name → local path
	remote   map[string]string        // asset id → remote file id
	inflight map[string]chan struct{} // asset id → upload in progress
}

// NewMediaResolver creates an empty resolver.
func NewMediaResolver() *MediaResolver {
	return &MediaResolver{
		local:    make(map[string]string),
		remote:   make(map[string]string),
		inflight: make(map[string]chan struct{}),
	}
}

// AssetID strips the scheme from an asset pointer.
// "file-service://file-AbC" → "file-AbC", "sediment://file_0001" → "file_0001".
func AssetID(pointer string) string {
	if i := strings.Index(pointer, "://"); i >= 0 {
		return pointer[i+3:]
	}
	return pointer
}

// AddLocal registers an extracted file under its archive base name.
func (r *MediaResolver) AddLocal(baseName, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.local[baseName] = path
}

// ClaimRemote reserves the upload of an asset. A claimed=true return
// means the caller owns the upload and must finish with SetRemote or
// ReleaseRemote. Otherwise the call blocks until the owner finishes
// and returns the recorded remote ID, empty when the owner gave up.
// Without the reservation two workers whose conversations share an
// asset would both miss the cache and upload their own copy.
func (r *MediaResolver) ClaimRemote(assetID string) (remoteID string, claimed bool) {
	for {
		r.mu.Lock()
		if id, ok := r.remote[assetID]; ok {
			r.mu.Unlock()
			return id, false
		}
		ch, ok := r.inflight[assetID]
		if !ok {
			r.inflight[assetID] = make(chan struct{})
			r.mu.Unlock()
			return "", true
		}
		r.mu.Unlock()
		<-ch
	}
}

// ReleaseRemote abandons a claim after a failed upload so waiting
// claimants stop blocking. The next claimant takes over the upload.
func (r *MediaResolver) ReleaseRemote(assetID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishInflight(assetID)
}

// SetRemote records the remote copy of an asset and wakes any workers
// waiting on its claim.
func (r *MediaResolver) SetRemote(assetID, remoteID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remote[assetID] = remoteID
	r.finishInflight(assetID)
}

// finishInflight closes an asset's claim channel. Caller holds the lock.
func (r *MediaResolver) finishInflight(assetID string) {
	if ch, ok := r.inflight[assetID]; ok {
		close(ch)
		delete(r.inflight, assetID)
	}
}

// Resolve fills in LocalPath and RemoteID on a media reference.
// Extracted files are named after their asset identifier with the
// original filename appended, so matching is by identifier prefix.
// Returns false when nothing matched; the reference stays unresolved
// and the renderer shows a placeholder.
func (r *MediaResolver) Resolve(ref *models.MediaReference) bool {
	if ref == nil {
		return false
	}
	id := AssetID(ref.Pointer)
	if id == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if remoteID, ok := r.remote[id]; ok {
		ref.RemoteID = remoteID
	}
	if path, ok := r.matchLocal(id); ok {
		ref.LocalPath = path
	}
	return ref.Resolved()
}

// matchLocal finds an extracted file whose name starts with the asset
// identifier. Caller holds the lock.
func (r *MediaResolver) matchLocal(id string) (string, bool) {
	// Exact name first (generated images keep the bare identifier).
	if path, ok := r.local[id]; ok {
		return path, true
	}
	for base, path := range r.local {
		if strings.HasPrefix(base, id) {
			return path, true
		}
	}
	return "", false
}
