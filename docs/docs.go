package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "Campus Maintenance Dispatch",
    "description": "Report intake, technician assignment, assignment lifecycle and scheduled escalation, batching and preventive sweeps",
    "version": "1.0"
  },
  "basePath": "/",
  "securityDefinitions": {
    "AdminKey": {"type": "apiKey", "in": "header", "name": "X-Admin-Key"}
  },
  "tags": [
    {"name": "reports"},
    {"name": "technicians"},
    {"name": "assignments"},
    {"name": "sweeps", "description": "POST /api/sweeps/{escalation|batch|preventive}, admin only"},
    {"name": "runs"},
    {"name": "campus"}
  ],
  "paths": {}
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
