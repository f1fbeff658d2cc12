package fetch

import (
	"context"
	"fmt"
	"net/http"

	"shrike/internal/proxy"
)

// NewProber turns an engine into a validation probe against probeURL.
// Anything other than a clean 200 marks the candidate as unusable.
func NewProber(engine Engine, probeURL string) proxy.ProbeFunc {
	return func(ctx context.Context, proxyURL string) error {
		status, _, err := engine.Get(ctx, probeURL, proxyURL)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("probe returned status %d", status)
		}
		return nil
	}
}
