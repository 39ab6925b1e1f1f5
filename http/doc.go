// Package http provides the HTTP surface of the itemgate item gateway.
//
// Every item route is scoped to an owner, given as the first two path
// segments, and authorized with an opaque access token checked against a
// credential oracle.
//
// # Routes
//
// All routes are mounted under HandlerConfig.BasePath:
//
//	GET  /status                                              liveness, no auth
//	POST /{ownerName}/{ownerId}/item/form                     multipart upload
//	GET  /{ownerName}/{ownerId}/filelist                      list the owner's items
//	GET  /{ownerName}/{ownerId}/{itemType}/{presentation}/{name}?encoding=base64
//
// /metrics is served at the root when a MetricsHandler is configured.
//
// # Authentication
//
// The token is read from the Authorization header, either bare or as
// "Bearer <token>". Uploads may instead carry it in the access_token form
// field. Checks go through the Authorizer, typically an *itemgate.Authorizer
// over a caching oracle:
//
//	cache, _ := itemgate.NewValidationCache(keybackend.NewMapOracle(tokens), itemgate.CacheConfig{})
//	handler := http.NewHandler(&http.HandlerConfig{BasePath: "/file_api"}, store, itemgate.NewAuthorizer(cache))
//	http.ListenAndServe(":8080", handler.Router())
//
// # Errors
//
// Failures are written as JSON ErrorResponse bodies. HandleError maps the
// itemgate error taxonomy to status codes; backend faults keep the status
// reported by the storage backend.
package http
