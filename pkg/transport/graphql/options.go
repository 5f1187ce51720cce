package graphql

// DefaultUserAgent identifies the client to the API.
const DefaultUserAgent = "shiphero-core/1"

// BuilderOption configures the Builder.
type BuilderOption func(*Builder)

// WithHeader sets a header on every request. Content-Type, Accept and
// Authorization are owned by the builder and cannot be overridden.
func WithHeader(key, value string) BuilderOption {
	return func(b *Builder) {
		if b.Headers == nil {
			b.Headers = make(map[string]string)
		}
		b.Headers[key] = value
	}
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithUserAgent replaces DefaultUserAgent.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		WithHeader("User-Agent", userAgent)(c.builder)
	}
}
