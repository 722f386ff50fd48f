package api

import (
	"log/slog"
	"net/http"

	"github.com/user/logsieve/internal/adapter/api/handler"
	"github.com/user/logsieve/internal/usecase"
)

// NewAdminRouter creates the HTTP router for buffer stream administration.
// Path patterns ({streamName} etc.) require Go 1.22+.
func NewAdminRouter(adminUseCase *usecase.AdminStreamUseCase, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	adminHandler := handler.NewAdminHandler(adminUseCase, logger)

	mux.HandleFunc("GET /health", adminHandler.HealthCheck)

	// Stream info.
	mux.HandleFunc("GET /admin/streams/{streamName}/groups", adminHandler.GetGroupInfo)
	mux.HandleFunc("GET /admin/streams/{streamName}/groups/{groupName}/consumers", adminHandler.GetConsumerInfo)

	// Pending records.
	mux.HandleFunc("GET /admin/streams/{streamName}/groups/{groupName}/pending", adminHandler.GetPendingSummary)
	mux.HandleFunc("GET /admin/streams/{streamName}/groups/{groupName}/pending/messages", adminHandler.GetPendingMessages)

	// Stream operations.
	mux.HandleFunc("POST /admin/streams/{streamName}/groups/{groupName}/claim", adminHandler.ClaimMessages)
	mux.HandleFunc("POST /admin/streams/{streamName}/groups/{groupName}/ack", adminHandler.AcknowledgeMessages)
	mux.HandleFunc("POST /admin/streams/{streamName}/trim", adminHandler.TrimStream)

	return mux
}
