// Package server assembles shelld: descriptor catalog, spawn backends, app
// manager, dispatcher loop, WebSocket endpoints and the HTTP router.
//
// Example Usage:
//
//	srv, err := server.NewServer(ctx, cfg, version)
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx)
package server
