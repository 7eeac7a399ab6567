/*
Package nodes provides the workflow node variants that wrap the Labs
image generation endpoints. Each node is a thin parameter layer over the
shared labs.Client: it validates its inputs, builds the endpoint-specific
JSON payload, and picks a poll profile. All protocol logic (submission,
polling, result extraction) lives in package labs.

Variants:

  - TextToImage: classic FLUX and Kontext generation models.
  - KontextTextToImage: Kontext-family generation only.
  - KontextImageEdit: instruction-based editing of an input image.
  - FluxFill: mask-based inpainting.

A Runner executes nodes against a client, with optional result caching,
artifact storage, and history journaling.
*/
package nodes
