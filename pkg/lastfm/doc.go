// Package lastfm is a small client for the parts of the Last.fm API 2.0
// that a scrobbler needs: the desktop authentication flow and the track
// now-playing and scrobble methods.
//
// # Authentication
//
// Desktop applications authenticate in three steps:
//
//	token, err := client.Auth().GetToken(ctx)
//	fmt.Println("Authorize at:", client.Auth().GetAuthURL(token.Token))
//	// wait for the user
//	session, err := client.Auth().GetSession(ctx, token.Token)
//	client.SetSessionKey(session.Key)
//
// Session keys have no expiry; store session.Key and pass it as
// Config.SessionKey next time.
//
// # Scrobbling
//
//	_, err := client.Scrobble().UpdateNowPlaying(ctx, track)
//	_, err = client.Scrobble().Scrobble(ctx, track, startedAt)
//	resp, err := client.Scrobble().ScrobbleBatch(ctx, scrobbles) // at most MaxBatchSize
//
// A response with Ignored > 0 means the request succeeded but Last.fm
// refused some of the plays; IgnoredMessage on each result says why.
//
// # Errors and retries
//
// API failures are returned as *Error. Requests are retried up to three
// times with exponential backoff on network errors, HTTP 5xx and the
// temporary error codes (see Error.Temporary). Set Config.Limiter to stay
// under Last.fm's request rate guideline.
package lastfm
