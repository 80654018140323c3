package types

import (
	"github.com/Skt329/Image-Resizer/pkg/imgerr"
)

// Report is the self-describing outcome of one request, suitable for JSON
type Report struct {
	Success   bool    `json:"success"`
	Kind      string  `json:"kind,omitempty"`
	Message   string  `json:"message"`
	BestBytes int     `json:"best_bytes,omitempty"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	Density   float64 `json:"density,omitempty"`
	ByteSize  int     `json:"byte_size,omitempty"`
	Format    Format  `json:"format,omitempty"`
	Quality   int     `json:"quality,omitempty"`
	Attempts  int     `json:"attempts,omitempty"`
}

// NewReport folds a pipeline outcome into a Report
func NewReport(out *Output, err error) Report {
	if err != nil {
		rep := Report{
			Kind:    imgerr.KindOf(err).String(),
			Message: err.Error(),
		}
		if best, ok := imgerr.BestBytes(err); ok {
			rep.BestBytes = best
		}
		return rep
	}
	if out == nil {
		return Report{Kind: imgerr.KindUnknown.String(), Message: "no output produced"}
	}

	return Report{
		Success:  true,
		Message:  "image processed successfully",
		Width:    out.Width,
		Height:   out.Height,
		Density:  out.Density,
		ByteSize: out.ByteSize,
		Format:   out.Format,
		Quality:  out.Quality,
		Attempts: out.Attempts,
	}
}
