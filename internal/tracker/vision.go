package tracker

import (
	"bytes"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"sync"

	"github.com/corona10/goimagehash"
)

// frameSkipper suppresses recognition calls for frames that are perceptually
// identical to the previous one. The md5 check in the capturer catches
// byte-identical frames; this catches re-encodes and cursor jitter.
type frameSkipper struct {
	mu          sync.Mutex
	maxDistance int
	lastHash    *goimagehash.ImageHash
}

func newFrameSkipper(maxDistance int) *frameSkipper {
	return &frameSkipper{maxDistance: maxDistance}
}

// similar reports whether the frame is close enough to the previous one to
// skip recognition. Undecodable frames are never skipped.
func (s *frameSkipper) similar(frame []byte) bool {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return false
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastHash == nil {
		s.lastHash = hash
		return false
	}

	dist, err := s.lastHash.Distance(hash)
	if err != nil {
		s.lastHash = hash
		return false
	}

	if dist <= s.maxDistance {
		return true
	}

	s.lastHash = hash
	return false
}

func (s *frameSkipper) reset() {
	s.mu.Lock()
	s.lastHash = nil
	s.mu.Unlock()
}
