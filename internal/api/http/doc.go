// Package http serves the shelld REST API with gin.
//
// Queries and commands run on the service.Dispatcher loop, so handlers never
// touch the app manager concurrently. Error kinds map to status codes:
// unknown apps and windows are 404, a second launch while starting is 409,
// requests an app cannot honour are 422 and spawn failures are 502.
package http
