// Package agents provides in-process simulator agents that speak the hub's
// wire protocol over agent channels.
//
// A Simulator registers with a hub, heartbeats on an interval, and answers
// dispatched requests from a fixed rule table keyed on disruption type and
// severity. The simulators stand in for the external agent fleet in the
// serve command and in end-to-end tests; real agents implement the same
// wire contract over whatever transport carries their channel.
package agents
