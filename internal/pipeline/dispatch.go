package pipeline

import (
	"context"
	"fmt"

	"github.com/subvoc/subvoc/pkg/models"
)

// HandleRequest executes one queued processing request. The worker
// calls this for every consumed message; a returned error sends the
// message to the dead-letter queue.
func (s *Service) HandleRequest(ctx context.Context, req *models.ProcessRequest) error {
	log := s.log.WithRequestID(req.ID).WithVideoID(req.VideoID).WithField("kind", req.Kind)
	log.Info("processing request")

	switch req.Kind {
	case models.RequestKindSubtitles:
		_, err := s.GenerateSubtitles(ctx, req.VideoID, req.Language, req.EnableDubbing)
		return err
	case models.RequestKindBurnIn:
		_, err := s.BurnIn(ctx, req.VideoID, req.Language)
		return err
	default:
		return &InputError{Reason: fmt.Sprintf("unknown request kind %q", req.Kind)}
	}
}
