/*
Package labs implements the asynchronous job lifecycle client for the
Black Forest Labs ("Labs") image generation API.

The API is long-poll shaped: a generation request is POSTed to a model
endpoint, the response carries a job id (and optionally a polling URL),
and the job is then polled until it reaches a terminal status. The client
decomposes into three sequential responsibilities:

  - Submit: build and send the creation request, extract the JobHandle.
  - Poll: drive the status state machine with backoff, absorbing
    transient 5xx/429 responses, until a terminal status or the attempt
    budget is reached.
  - Resolve: extract the signed asset URL (and echo-back seed) from the
    terminal response.

Generate chains all three. Each job owns its poll session exclusively;
any number of jobs may run concurrently on one Client.

Poll behavior is configured by a PollProfile. StandardProfile uses
exponential backoff with jitter and a budget of 120 attempts;
LongRunningProfile uses a fixed short interval and a budget of 900
attempts for editing/inpainting endpoints that block the engine longer.
*/
package labs
