// Package wire translates a route table into the Mountebank imposter
// creation payload.
package wire

import (
	"mb-route-sync/models"
	"mb-route-sync/routes"
)

// ToRemotePayload builds the POST /imposters body: one stub per
// (path, method) pair, each with a joint equals predicate and a literal
// "is" response. Stubs are ordered by path, then method.
func ToRemotePayload(table *routes.Table, d routes.Descriptor) models.Imposter {
	entries := table.Entries()
	payload := models.Imposter{
		Port:     d.Port,
		Protocol: d.Protocol,
		Name:     d.Name,
		Stubs:    make([]models.Stub, 0, len(entries)),
	}
	for _, e := range entries {
		payload.Stubs = append(payload.Stubs, toStub(e))
	}
	return payload
}

func toStub(e routes.RouteEntry) models.Stub {
	headers := e.Response.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return models.Stub{
		Predicates: []models.Predicate{
			{Equals: &models.EqualsPredicate{Method: e.Method, Path: e.Path}},
		},
		Responses: []models.Response{
			{Is: &models.IsResponse{StatusCode: e.Response.StatusCode, Headers: headers, Body: e.Response.Body}},
		},
	}
}
