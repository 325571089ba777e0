package api

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/banterhq/banter/pkg/internal/gateway"
	"github.com/banterhq/banter/pkg/internal/services"
)

// API bundles the handles the route handlers need. Everything that can emit
// realtime packets is threaded through here from main; no handler reaches
// for a package global to find the gateway.
type API struct {
	Gateway  *gateway.Gateway
	Presence *services.PresenceService
	Events   *services.EventService
	Calls    *services.CallService
	Relay    *services.RelayService
}

func (h *API) MapAPIs(app *fiber.App, baseURL string) {
	api := app.Group(baseURL).Name("API")
	{
		api.Get("/users/me", authMiddleware, h.getUserinfo)
		api.Get("/users/:accountId", h.getOthersInfo)

		api.Put("/keys/me", authMiddleware, h.publishKeyBundle)
		api.Get("/keys/:accountId", authMiddleware, h.getKeyBundle)

		workspaces := api.Group("/workspaces").Use(authMiddleware).Name("Workspaces API")
		{
			workspaces.Post("/", h.createWorkspace)
			workspaces.Get("/me", h.listOwnedWorkspace)
			workspaces.Get("/:workspaceId", h.getWorkspace)
			workspaces.Get("/:workspaceId/members", h.listWorkspaceMembers)
			workspaces.Post("/:workspaceId/members", h.addWorkspaceMember)

			channels := workspaces.Group("/:workspaceId/channels").Name("Channels API")
			{
				channels.Get("/", h.listChannel)
				channels.Post("/", h.createChannel)
				channels.Get("/:channel", h.getChannel)
				channels.Get("/:channel/me", h.getChannelIdentity)
				channels.Put("/:channel", h.editChannel)
				channels.Delete("/:channel", h.deleteChannel)

				channels.Get("/:channel/members", h.listChannelMembers)
				channels.Post("/:channel/members", h.addChannelMember)
				channels.Delete("/:channel/members/me", h.removeOwnChannelMember)

				channels.Get("/:channel/events", h.listChannelEvent)
				channels.Get("/:channel/events/:eventId", h.getChannelEvent)
				channels.Post("/:channel/messages", h.newChannelMessage)
				channels.Put("/:channel/messages/:messageId", h.editChannelMessage)
				channels.Delete("/:channel/messages/:messageId", h.deleteChannelMessage)

				channels.Get("/:channel/calls", h.listChannelCall)
			}
		}

		threads := api.Group("/threads").Use(authMiddleware).Name("Threads API")
		{
			threads.Post("/", h.createThread)
			threads.Get("/me", h.listOwnedThread)
			threads.Get("/:threadId", h.getThread)
			threads.Delete("/:threadId/me", h.leaveThread)
			threads.Get("/:threadId/events", h.listThreadEvent)
			threads.Post("/:threadId/messages", h.newThreadMessage)
		}

		calls := api.Group("/calls").Use(authMiddleware).Name("Calls API")
		{
			calls.Post("/", h.startCall)
			calls.Get("/ongoing", h.getOngoingCall)
			calls.Post("/:callId/join", h.joinCall)
			calls.Post("/:callId/leave", h.leaveCall)
			calls.Post("/:callId/token", h.exchangeCallToken)
			calls.Get("/:callId/participants", h.listCallParticipants)
			calls.Delete("/:callId", h.endCall)
		}

		api.Get("/gateway", authMiddleware, websocket.New(h.unifiedGateway))
	}
}
