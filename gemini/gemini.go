// Package gemini implements [dave.RunService], [dave.FileService] and
// [dave.Moderator] on top of Gemini code execution.
//
// It wraps the google.golang.org/genai SDK. Gemini has no server-side
// threads, so conversations are kept in memory and replayed on every run.
// Streaming uses the SDK's iter.Seq2 iterator, wrapped into the pull-based
// [dave.Stream] interface. Images produced by executed code arrive inline
// and are held in a [Blobs] store until the session retrieves and deletes
// them through [Client.Content] and [Client.Delete].
package gemini

const (
	defaultModel           = "gemini-2.5-flash"
	defaultModerationModel = "gemini-2.5-flash-lite"
	defaultInstructions    = "You are Dave, a data analyst. Answer questions about the attached datasets by writing and running Python code. Render charts with matplotlib."
	moderationPrompt       = "Is the given text NSFW? If yes, return `1`, else return `0`."
	blobPrefix             = "blob-"
)
