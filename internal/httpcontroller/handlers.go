package httpcontroller

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/treeguard/woodpecker-go/internal/errors"
	"github.com/treeguard/woodpecker-go/internal/soundbank"
	"github.com/treeguard/woodpecker-go/internal/stats"
)

// statusResponse is the process-wide readiness and statistics snapshot.
type statusResponse struct {
	Ready       bool           `json:"ready"`
	ModelLoaded bool           `json:"model_loaded"`
	Threshold   float64        `json:"threshold"`
	Categories  []string       `json:"sound_categories"`
	TotalAssets int            `json:"total_sounds"`
	Stats       stats.Snapshot `json:"stats"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	resp := statusResponse{
		Ready:       s.Ready(),
		ModelLoaded: s.Predictor != nil,
		Threshold:   s.Settings.Detector.Threshold,
		Stats:       s.Aggregator.Snapshot(),
	}
	if s.Catalog != nil {
		resp.Categories = s.Catalog.Categories()
		resp.TotalAssets = s.Catalog.TotalAssets()
	}

	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

// handleSoundsListing returns the category to asset mapping.
func (s *Server) handleSoundsListing(c echo.Context) error {
	listing := s.Catalog.Listing()
	out := make(map[string][]string, len(listing))
	for category, assets := range listing {
		names := make([]string, 0, len(assets))
		for _, a := range assets {
			names = append(names, a.Name)
		}
		out[category] = names
	}
	return c.JSON(http.StatusOK, out)
}

// handleSoundAsset serves one asset's raw bytes.
func (s *Server) handleSoundAsset(c echo.Context) error {
	category := c.Param("category")
	filename := c.Param("filename")

	data, mediaType, err := s.Catalog.Open(category, filename)
	if err != nil {
		if errors.Is(err, soundbank.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}
		if s.logger != nil {
			s.logger.Error("failed to read sound asset", "category", category, "asset", filename, "error", err)
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "asset unavailable"})
	}
	return c.Blob(http.StatusOK, mediaType, data)
}
