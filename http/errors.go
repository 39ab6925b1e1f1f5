package http

// Upload precondition messages. Each names the first violated requirement.
const (
	msgNoAccessToken      = "No access token given."
	msgNoFile             = "No file given"
	msgNoFilename         = "Could not determine filename"
	msgNoUserID           = "No user id given."
	msgNoUserName         = "No user name given."
	msgInvalidLength      = "Content length was invalid: %d"
	msgNoContentType      = "Content type was null or empty."
	msgUserIDMismatch     = "User id does not match the request path."
	msgUserNameMismatch   = "User name does not match the request path."
	msgMalformedUpload    = "Upload could not be parsed: %s"
	msgUploadTooLarge     = "Upload exceeds the maximum size of %d bytes"
	msgInvalidPathSegment = "Invalid path segment: %s"
)
