package server

// Server is the lifecycle contract for the inbound transport of sam-server.
//
// Implementations block in [RunServer] until shutdown is requested, then
// drain in-flight requests and open websocket sessions in [Shutdown].
type Server interface {
	// RunServer starts serving requests and blocks until the server stops.
	RunServer()

	// Shutdown gracefully stops the server and frees associated resources.
	Shutdown()
}
