// Package logging builds the zap loggers used across minutes.
//
// Services accept a *zap.Logger and fall back to zap.NewNop() when given nil.
// Correlation data (trace, session and request ids) travels on the context
// and is attached with With or FromContext.
package logging
