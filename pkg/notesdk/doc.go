// Package notesdk is a Go client for the notes API.
//
// Unauthenticated calls live on SDKClient. Signing in returns a Session that
// carries the bearer token for note and account calls:
//
//	client := notesdk.NewSDKClient("http://localhost:5000")
//
//	if err := client.Login(ctx, "ada@example.com"); err != nil {
//		return err
//	}
//	// The user reads the code from their email.
//	session, err := client.VerifyOTP(ctx, "ada@example.com", code)
//	if err != nil {
//		return err
//	}
//
//	note, err := session.CreateNote(ctx, "buy milk")
//
// Errors returned by the service are *APIError values carrying the HTTP
// status and the service's message:
//
//	var apiErr *notesdk.APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
//		// the note is gone, or belongs to someone else
//	}
//
// The types in this package are also the wire types used by the server.
package notesdk
