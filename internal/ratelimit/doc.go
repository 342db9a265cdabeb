// Package ratelimit throttles interaction attempts per actor with a sliding
// window and temporary bans.
//
// State lives in process memory. An actor that exceeds the window threshold is
// banned for the policy's ban duration, and every successful interaction rolls
// for an additional post-hoc ban. Policies resolve per actor so privileged
// actors can run with their own limits.
package ratelimit
