// Package workflow defines the guided workflows of the agent.
//
// A Workflow is an ordered list of Steps. Each step names the field it
// captures and, optionally, a Validator that normalises the user's answer.
// A session walks the steps by index; once the index moves past the last
// step the workflow is parked in a terminal state until the user switches
// workflow.
package workflow
