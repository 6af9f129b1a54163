/*
Package server implements msgpack IPC for card search suggestions.

The server reads msgpack requests from stdin and writes one msgpack response
per request to stdout. Requests are handled one at a time, each running to
completion before the next is decoded.

# IPC

Every request carries an ID and an action. Short keys keep messages small:

	{"id": "r1", "a": "suggest", "p": "t", "q": "cre", "l": 10}

answers with the matching candidates and the time taken in microseconds:

	{"id": "r1", "s": [{"v": "Creature", "x": "t:Creature", "m": "<strong>Cre</strong>ature", "o": 0, "n": 3}], "c": 1, "t": 85}

Search boxes are driven through field actions. A field is attached on its
first input; "p" pins it to a category:

	{"id": "r2", "a": "input", "f": "search", "p": "t", "v": "cre"}
	{"id": "r3", "a": "key", "f": "search", "k": "ArrowDown"}
	{"id": "r4", "a": "key", "f": "search", "k": "Enter"}
	{"id": "r5", "a": "click", "t": "item:searchautocomplete-list:0"}
	{"id": "r6", "a": "blur", "f": "search"}
	{"id": "r7", "a": "detach", "f": "search"}

Field responses carry the field value, the selection snapshot, the render
events produced while handling the request and any submissions:

	{"id": "r4", "f": "search", "v": "t:Creature", "o": false, "i": -1,
	 "e": [{"type": "close", "list": "searchautocomplete-list"}],
	 "sub": [{"f": "search", "v": "t:Creature"}]}

The catalog cache can be inspected and refreshed:

	{"id": "c1", "a": "cache", "v": "info"}
	{"id": "c2", "a": "cache", "v": "refresh"}

The server reloads its config file every 100 requests.
*/
package server

// Actions understood by the server. An empty action means ActionSuggest.
const (
	ActionSuggest = "suggest"
	ActionInput   = "input"
	ActionKey     = "key"
	ActionClick   = "click"
	ActionBlur    = "blur"
	ActionDetach  = "detach"
	ActionCache   = "cache"
	ActionHealth  = "health"
)

// Request is the single request shape for every action.
type Request struct {
	ID     string `msgpack:"id"`
	Action string `msgpack:"a"`
	Field  string `msgpack:"f,omitempty"`
	Prefix string `msgpack:"p,omitempty"`
	Query  string `msgpack:"q,omitempty"`
	Value  string `msgpack:"v,omitempty"`
	Key    string `msgpack:"k,omitempty"`
	Target string `msgpack:"t,omitempty"`
	Limit  int    `msgpack:"l,omitempty"`
}

// Suggestion is one candidate as sent to clients.
type Suggestion struct {
	Value  string `msgpack:"v"`
	Text   string `msgpack:"x"`
	Markup string `msgpack:"m"`
	Start  int    `msgpack:"o"`
	Length int    `msgpack:"n"`
}

// SuggestResponse answers a suggest request.
type SuggestResponse struct {
	ID          string       `msgpack:"id"`
	Suggestions []Suggestion `msgpack:"s"`
	Count       int          `msgpack:"c"`
	TimeTaken   int64        `msgpack:"t"`
	Warning     string       `msgpack:"w,omitempty"`
}

// Event is a renderer call recorded while handling a request. Type is one
// of "render", "focus" or "close".
type Event struct {
	Type        string       `msgpack:"type"`
	List        string       `msgpack:"list"`
	Field       string       `msgpack:"f,omitempty"`
	Focus       int          `msgpack:"i"`
	Suggestions []Suggestion `msgpack:"s,omitempty"`
}

// Submission is a committed value.
type Submission struct {
	Field string `msgpack:"f"`
	Value string `msgpack:"v"`
}

// FieldResponse answers field actions.
type FieldResponse struct {
	ID        string       `msgpack:"id"`
	Field     string       `msgpack:"f,omitempty"`
	Value     string       `msgpack:"v"`
	Open      bool         `msgpack:"o"`
	List      string       `msgpack:"list,omitempty"`
	Focus     int          `msgpack:"i"`
	MinLen    int          `msgpack:"ml"`
	Consumed  bool         `msgpack:"k,omitempty"`
	Committed bool         `msgpack:"cm,omitempty"`
	Events    []Event      `msgpack:"e,omitempty"`
	Submits   []Submission `msgpack:"sub,omitempty"`
	Warning   string       `msgpack:"w,omitempty"`
}

// CacheResponse reports catalog cache state.
type CacheResponse struct {
	ID        string `msgpack:"id"`
	Status    string `msgpack:"status"`
	Error     string `msgpack:"error,omitempty"`
	LastFetch int64  `msgpack:"last_fetch"`
	AgeSecs   int64  `msgpack:"age"`
	Stale     bool   `msgpack:"stale"`
	Names     int    `msgpack:"names"`
	Sets      int    `msgpack:"sets"`
	Types     int    `msgpack:"types"`
}

// StatusResponse is sent on startup and for health checks.
type StatusResponse struct {
	ID     string `msgpack:"id,omitempty"`
	Status string `msgpack:"status"`
}

// ErrorResponse holds basic error information for failed requests.
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
