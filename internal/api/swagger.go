package api

// Package api provides HTTP API handlers and routes
//
// @title CaseStrainer API
// @version 1.0.0
// @description Citation verification service for legal briefs
// @description
// @description CaseStrainer accepts a document or block of text, extracts legal
// @description citations, clusters duplicate/near-duplicate references, and
// @description verifies each cluster against a citation lookup database to flag
// @description citations that appear fabricated or hallucinated.
// @description
// @description Features:
// @description - Citation extraction and canonical-form clustering
// @description - Asynchronous job submission with progress polling
// @description - Verification cache with configurable TTL
// @description - Citation network side query over a completed job's clusters
// @description - Prometheus metrics and structured logging
//
// @contact.name CaseStrainer maintainers
// @contact.url https://github.com/casestrainer/casestrainer
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /api
//
// @tag.name Analyze
// @tag.description Document and text submission for citation verification
//
// @tag.name Jobs
// @tag.description Job status polling and progress
//
// @tag.name Network
// @tag.description Citation co-occurrence network for a completed job
//
// @tag.name Cache
// @tag.description Verification cache administration
//
// @tag.name Health
// @tag.description Health check and readiness endpoints
