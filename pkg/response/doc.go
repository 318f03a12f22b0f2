/*
Package response decodes the payload a responder sends back for a prompt.

A payload is a JSON object keyed by the ids of the prompt's input elements.
The reserved key "" addresses the single unnamed input; a payload holding only
that key decodes to its bare value.
*/
package response
