// Package ws implements the WebSocket hub for the dashboard.
//
// Hub keeps a set of connected browsers and pushes the rendered view to all
// of them after every refresh (Publish is registered as a poller listener).
// A client receives the current view immediately on connect.
//
// Message format sent to clients:
//
//	{
//	  "event": "view",
//	  "data":  { /* same schema as GET /api/v1/view */ }
//	}
//
// Clients whose outgoing buffer fills up are disconnected. The endpoint is
// mounted at /ws/stream.
package ws
