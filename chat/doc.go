// Package chat feeds live Twitch chat activity into the scoring engine.
//
// Source connects to Twitch IRC for a channel and buffers incoming messages;
// its Poll method hands the engine at most one interaction per tick, so a
// burst of messages is credited across subsequent ticks instead of being
// collapsed or double-counted within one.
//
// Credentials: with a bot username and an OAuth token the client joins
// authenticated; without them it falls back to an anonymous (read-only)
// connection, which is all chat:read scoring needs.
package chat
