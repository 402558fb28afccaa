package coordinator

import "errors"

// Sentinel errors for the failure taxonomy of spec section 7. Every
// one of these is reported to the offending session as {type:"error",
// description} and never terminates the connection or affects any
// other session (section 7, "Local vs surfaced").
var (
	errUnknownType        = errors.New("unrecognized message type")
	errUnknownGroup       = errors.New("unknown group")
	errWrongPassword      = errors.New("wrong password")
	errUnknownParticipant = errors.New("unknown participant")
	errIdentityBound      = errors.New("participant already bound to another session")
	errAlreadyJoined      = errors.New("session already joined")
	errNotJoined          = errors.New("not joined")
	errUnknownPeer        = errors.New("unknown or not-present peer")
	errUnknownSlot        = errors.New("unknown round index")
	errDuplicateShare     = errors.New("multiple shares submitted for this round by the same participant")
)
