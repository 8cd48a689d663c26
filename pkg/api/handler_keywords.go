package api

import (
	"math/bits"
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// listKeywordsHandler handles GET /v1/keywords.
func (s *Server) listKeywordsHandler(c *echo.Context) error {
	all := s.keywords.All()
	out := make([]KeywordMeta, 0, len(all))
	for _, kw := range all {
		out = append(out, KeywordMeta{
			Name:      kw.Name,
			Arity:     kw.Arity,
			RawParams: rawParamPositions(kw.RawParams),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// rawParamPositions expands a RawParams bitmask into the sorted list of
// parameter positions it marks raw.
func rawParamPositions(mask uint64) []int {
	var out []int
	for mask != 0 {
		i := bits.TrailingZeros64(mask)
		out = append(out, i)
		mask &^= 1 << uint(i)
	}
	return out
}
