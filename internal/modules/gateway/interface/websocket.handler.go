package transport

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"sociaWs/internal/modules/gateway/application/usecase"
	"sociaWs/internal/modules/gateway/domain"
	"sociaWs/internal/modules/gateway/infrastructure"
	"sociaWs/internal/shared/auth"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewWebsocketHandler exposes /ws/:namespace (token in path, query or
// Authorization header). Credential resolution happens before the upgrade:
// a connection that fails it is refused with nothing registered.
func NewWebsocketHandler(
	gw *usecase.Gateway,
	messaging *usecase.MessagingUseCase,
	social *usecase.SocialUseCase,
	validator auth.TokenValidator,
	sendBuffer int,
) echo.HandlerFunc {
	deps := commandDeps{gateway: gw, messaging: messaging, social: social}

	return func(c echo.Context) error {
		ns := domain.NormalizeNamespace(c.Param("namespace"))
		if !ns.Valid() {
			slog.Warn("ws handler unknown namespace", slog.String("namespace", c.Param("namespace")))
			return echo.NewHTTPError(http.StatusBadRequest, "unknown namespace")
		}

		token := strings.TrimSpace(c.Param("token"))
		if token == "" {
			token = auth.ExtractToken(c.Request(), "token")
		}
		claims, err := validator.Validate(token)
		if err != nil {
			status := http.StatusUnauthorized
			message := "invalid token"
			if errors.Is(err, auth.ErrMissingToken) {
				status = http.StatusBadRequest
				message = "missing token"
			}
			slog.Warn("ws handler rejected", slog.String("namespace", string(ns)), slog.String("ip", c.RealIP()), slog.Any("error", err))
			return echo.NewHTTPError(status, message)
		}
		userID := claims.UserID()

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			slog.Error("ws handler upgrade failed", slog.String("namespace", string(ns)), slog.String("userId", userID), slog.Any("error", err))
			return err
		}

		connectionID := uuid.NewString()
		router := buildRouter(ns, deps)
		client := infrastructure.NewClient(conn, connectionID, userID, ns, sendBuffer, router)
		client.OnActivity(func() { gw.TouchActivity(connectionID) })
		client.AddCloseHook(func(cl *infrastructure.Client) { gw.Disconnect(cl.ID()) })

		metadata := map[string]string{}
		if ua := c.Request().UserAgent(); ua != "" {
			metadata["userAgent"] = ua
		}
		if claims.Device != "" {
			metadata["device"] = claims.Device
		}

		if _, err := gw.Connect(client, userID, ns, metadata); err != nil {
			slog.Error("ws handler connect failed", slog.String("namespace", string(ns)), slog.String("userId", userID), slog.Any("error", err))
			client.Close()
			return nil
		}

		go client.WritePump()
		go client.ReadPump()

		slog.Info("ws connected",
			slog.String("namespace", string(ns)),
			slog.String("userId", userID),
			slog.String("connectionId", connectionID),
			slog.String("ip", c.RealIP()),
		)
		return nil
	}
}
