package handlers

import (
	"encoding/json"
	"net/http"
)

type schema = map[string]interface{}

func ref(name string) schema {
	return schema{"$ref": "#/components/schemas/" + name}
}

func arrayOf(items schema) schema {
	return schema{"type": "array", "items": items}
}

func pageOf(items schema) schema {
	return schema{
		"type": "object",
		"properties": schema{
			"data":        arrayOf(items),
			"total":       schema{"type": "integer"},
			"page":        schema{"type": "integer"},
			"limit":       schema{"type": "integer"},
			"total_pages": schema{"type": "integer"},
		},
	}
}

func queryParam(name, description, typ string) schema {
	return schema{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      schema{"type": typ},
	}
}

func pathParam(name, typ, format string) schema {
	s := schema{"type": typ}
	if format != "" {
		s["format"] = format
	}
	return schema{"name": name, "in": "path", "required": true, "schema": s}
}

func jsonBody(s schema) schema {
	return schema{
		"required": true,
		"content":  schema{"application/json": schema{"schema": s}},
	}
}

func jsonResponse(description string, s schema) schema {
	return schema{
		"description": description,
		"content":     schema{"application/json": schema{"schema": s}},
	}
}

func operation(summary string, params []schema, body schema, responses schema) schema {
	op := schema{"summary": summary, "responses": responses}
	if len(params) > 0 {
		op["parameters"] = params
	}
	if body != nil {
		op["requestBody"] = body
	}
	return op
}

var (
	errBadRequest = jsonResponse("Invalid input", ref("Error"))
	errNotFound   = jsonResponse("Not found", ref("Error"))
	errConflict   = jsonResponse("Conflict", ref("Error"))
	noContent     = schema{"description": "Deleted"}

	pageParams = []schema{
		queryParam("page", "Page number (default: 1)", "integer"),
		queryParam("limit", "Records per page (default: 50, max: 500)", "integer"),
	}
	leadFilterParams = []schema{
		queryParam("city_id", "Filter by city", "integer"),
		queryParam("from", "Created at or after (RFC3339 or YYYY-MM-DD)", "string"),
		queryParam("until", "Created at or before (RFC3339 or YYYY-MM-DD)", "string"),
	}
	idParam   = []schema{pathParam("id", "integer", "int64")}
	uuidParam = []schema{pathParam("id", "string", "uuid")}
)

func openAPIDocument() schema {
	number := schema{"type": "number"}
	integer := schema{"type": "integer"}
	str := schema{"type": "string"}
	boolean := schema{"type": "boolean"}
	timestamp := schema{"type": "string", "format": "date-time"}

	consumption := schema{"type": "object", "properties": schema{
		"hourly": number, "daily": number, "monthly": number, "yearly": number,
	}}

	schemas := schema{
		"Error": schema{"type": "object", "properties": schema{
			"error": str, "message": str, "code": integer, "field": str,
		}},
		"SimulationInput": schema{
			"type":     "object",
			"required": []string{"capacity_kw", "city_id", "operating_hours_per_day"},
			"properties": schema{
				"capacity_kw":             number,
				"city_id":                 integer,
				"operating_hours_per_day": schema{"type": "integer", "minimum": 1, "maximum": 24},
				"operating_days_per_week": schema{"type": "integer", "minimum": 1, "maximum": 7},
				"operating_days_per_year": schema{"type": "integer", "minimum": 1, "maximum": 365},
				"delta_t":                 number,
			},
		},
		"SimulationResult": schema{"type": "object", "properties": schema{
			"capacity_ratio":   number,
			"operating_factor": number,
			"dry_cooler": schema{"type": "object", "properties": schema{
				"modules": integer, "total_capacity_kw": number, "nominal_water_flow": number,
				"evaporation_flow": number, "consumption": consumption, "annual_cost": number,
			}},
			"tower": schema{"type": "object", "properties": schema{
				"nominal_water_flow": number, "evaporation_flow": number,
				"consumption": consumption, "annual_cost": number,
			}},
			"comparison": schema{"type": "object", "properties": schema{
				"yearly_difference_liters": number, "yearly_difference_percent": number,
				"annual_savings_currency": number, "implementation_cost": number,
				"annual_maintenance_cost": number, "net_annual_savings": number,
				"pays_back": boolean, "payback_years": number, "total_lifetime_savings": number, "roi_percent": number,
			}},
		}},
		"Simulation": schema{"type": "object", "properties": schema{
			"input":   ref("SimulationInput"),
			"city":    ref("City"),
			"tariffs": ref("Tariffs"),
			"result":  ref("SimulationResult"),
		}},
		"Contact": schema{
			"type":     "object",
			"required": []string{"name", "email", "consent"},
			"properties": schema{
				"name": str, "email": schema{"type": "string", "format": "email"},
				"phone": str, "company": str, "role": str,
				"consent": boolean, "source": str,
			},
		},
		"LeadRequest": schema{"type": "object", "properties": schema{
			"contact": ref("Contact"),
			"input":   ref("SimulationInput"),
		}},
		"Lead": schema{"type": "object", "properties": schema{
			"id": schema{"type": "string", "format": "uuid"}, "name": str, "email": str,
			"phone": str, "company": str, "role": str, "consent": boolean,
			"source": str, "city_id": integer, "created_at": timestamp,
		}},
		"LeadSummary": schema{"allOf": []schema{ref("Lead"), schema{"type": "object", "properties": schema{
			"city_name": str, "modules": integer, "yearly_difference_liters": number,
			"annual_savings_currency": number, "pays_back": boolean, "payback_years": number,
		}}}},
		"LeadRecord": schema{"type": "object", "properties": schema{
			"lead":      ref("Lead"),
			"city_name": str,
			"simulation": schema{"type": "object", "properties": schema{
				"id": integer, "lead_id": str, "city_id": integer,
				"input": ref("SimulationInput"), "tariffs": ref("Tariffs"), "result": ref("SimulationResult"),
				"net_annual_savings": number, "pays_back": boolean, "created_at": timestamp,
			}},
		}},
		"LeadStatistics": schema{"type": "object", "properties": schema{
			"lead_count": integer, "simulation_count": integer, "non_paying_count": integer,
			"total_modules": integer, "total_yearly_difference_liters": number, "total_annual_savings_currency": number,
			"avg_payback_years": schema{"type": "number", "nullable": true},
			"by_city": arrayOf(schema{"type": "object", "properties": schema{
				"city_id": integer, "city_name": str, "state": str, "lead_count": integer,
				"simulation_count": integer, "non_paying_count": integer, "total_modules": integer,
				"total_yearly_difference_liters": number, "total_annual_savings_currency": number,
				"avg_payback_years": schema{"type": "number", "nullable": true},
			}}),
			"generated_at": timestamp,
		}},
		"CityOption": schema{"type": "object", "properties": schema{
			"id": integer, "name": str, "state": str, "average_temperature_c": number,
		}},
		"City": schema{"type": "object", "properties": schema{
			"id": integer, "name": str, "state": str, "active": boolean,
			"module_capacity_kw": number, "nominal_water_flow_l_per_min": number,
			"evaporation_fan_logic_percent": number, "yearly_consumption_dry_cooler_liters": number,
			"water_consumption_year_temp_liters": number, "water_consumption_year_fan_liters": number,
			"yearly_consumption_tower_liters": number, "average_temperature_c": number, "delta_t": number,
			"created_at": timestamp, "updated_at": timestamp,
		}},
		"Tariffs": schema{"type": "object", "additionalProperties": number},
		"Webhook": schema{"type": "object", "properties": schema{
			"id": integer, "name": str, "url": schema{"type": "string", "format": "uri"},
			"events": arrayOf(schema{"type": "string", "enum": []string{"lead.created"}}),
			"active": boolean, "created_at": timestamp, "updated_at": timestamp,
		}},
		"WebhookLog": schema{"type": "object", "properties": schema{
			"id": integer, "webhook_id": integer, "event": str,
			"status_code": schema{"type": "integer", "nullable": true},
			"response_body": str, "error": schema{"type": "string", "nullable": true},
			"duration_ms": integer, "created_at": timestamp,
		}},
	}

	paths := schema{
		"/api/cities": schema{
			"get": operation("List active cities for the wizard", nil, nil, schema{
				"200": jsonResponse("Active cities", arrayOf(ref("CityOption"))),
			}),
		},
		"/api/simulations": schema{
			"post": operation("Preview a savings simulation", nil, jsonBody(ref("SimulationInput")), schema{
				"200": jsonResponse("Simulation", ref("Simulation")),
				"400": errBadRequest,
			}),
		},
		"/api/leads": schema{
			"post": operation("Submit a lead with its simulation inputs", nil, jsonBody(ref("LeadRequest")), schema{
				"201": jsonResponse("Stored lead", ref("LeadRecord")),
				"400": errBadRequest,
			}),
		},
		"/api/admin/cities": schema{
			"get": operation("List cities",
				append([]schema{
					queryParam("state", "Filter by state code", "string"),
					queryParam("active", "Filter by active flag", "boolean"),
				}, pageParams...), nil, schema{
					"200": jsonResponse("Cities", pageOf(ref("City"))),
				}),
			"post": operation("Create a city", nil, jsonBody(ref("City")), schema{
				"201": jsonResponse("Created", ref("City")),
				"400": errBadRequest,
				"409": errConflict,
			}),
		},
		"/api/admin/cities/{id}": schema{
			"get": operation("Get a city", idParam, nil, schema{
				"200": jsonResponse("City", ref("City")),
				"404": errNotFound,
			}),
			"put": operation("Replace a city", idParam, jsonBody(ref("City")), schema{
				"200": jsonResponse("Updated", ref("City")),
				"400": errBadRequest,
				"404": errNotFound,
				"409": errConflict,
			}),
			"delete": operation("Delete a city without leads", idParam, nil, schema{
				"204": noContent,
				"404": errNotFound,
				"409": errConflict,
			}),
		},
		"/api/admin/tariffs": schema{
			"get": operation("Get calculation constants", nil, nil, schema{
				"200": jsonResponse("Constants", schema{"type": "object"}),
			}),
			"put": operation("Update calculation constants", nil, jsonBody(ref("Tariffs")), schema{
				"200": jsonResponse("Constants", schema{"type": "object"}),
				"400": errBadRequest,
			}),
		},
		"/api/admin/leads": schema{
			"get": operation("List leads", append(append([]schema{}, leadFilterParams...), pageParams...), nil, schema{
				"200": jsonResponse("Leads", pageOf(ref("LeadSummary"))),
				"400": errBadRequest,
			}),
		},
		"/api/admin/leads/stats": schema{
			"get": operation("Lead pipeline statistics per city", leadFilterParams, nil, schema{
				"200": jsonResponse("Statistics", ref("LeadStatistics")),
				"400": errBadRequest,
			}),
		},
		"/api/admin/leads/export.xlsx": schema{
			"get": operation("Export leads as a spreadsheet", leadFilterParams, nil, schema{
				"200": schema{
					"description": "Excel workbook",
					"content": schema{
						xlsxContentType: schema{"schema": schema{"type": "string", "format": "binary"}},
					},
				},
			}),
		},
		"/api/admin/leads/{id}": schema{
			"get": operation("Get a lead with its simulation", uuidParam, nil, schema{
				"200": jsonResponse("Lead", ref("LeadRecord")),
				"404": errNotFound,
			}),
			"delete": operation("Delete a lead", uuidParam, nil, schema{
				"204": noContent,
				"404": errNotFound,
			}),
		},
		"/api/admin/webhooks": schema{
			"get": operation("List webhooks", nil, nil, schema{
				"200": jsonResponse("Webhooks", arrayOf(ref("Webhook"))),
			}),
			"post": operation("Create a webhook", nil, jsonBody(ref("Webhook")), schema{
				"201": jsonResponse("Created", ref("Webhook")),
				"400": errBadRequest,
			}),
		},
		"/api/admin/webhooks/{id}": schema{
			"get": operation("Get a webhook", idParam, nil, schema{
				"200": jsonResponse("Webhook", ref("Webhook")),
				"404": errNotFound,
			}),
			"put": operation("Replace a webhook", idParam, jsonBody(ref("Webhook")), schema{
				"200": jsonResponse("Updated", ref("Webhook")),
				"400": errBadRequest,
				"404": errNotFound,
			}),
			"delete": operation("Delete a webhook and its log", idParam, nil, schema{
				"204": noContent,
				"404": errNotFound,
			}),
		},
		"/api/admin/webhooks/{id}/logs": schema{
			"get": operation("Recent deliveries, newest first",
				append(append([]schema{}, idParam...), queryParam("limit", "Entries to return (default: 50, max: 500)", "integer")),
				nil, schema{
					"200": jsonResponse("Delivery log", arrayOf(ref("WebhookLog"))),
					"404": errNotFound,
				}),
		},
		"/api/admin/webhooks/{id}/test": schema{
			"post": operation("Send a webhook.test event now", idParam, nil, schema{
				"200": jsonResponse("Delivery outcome", ref("WebhookLog")),
				"404": errNotFound,
			}),
		},
		"/health": schema{
			"get": operation("Health check", nil, nil, schema{
				"200": jsonResponse("API and database are healthy", schema{"type": "object"}),
				"503": jsonResponse("Database unreachable", schema{"type": "object"}),
			}),
		},
		"/metrics": schema{
			"get": operation("Prometheus metrics", nil, nil, schema{
				"200": schema{
					"description": "Prometheus metrics in text format",
					"content":     schema{"text/plain": schema{"schema": str}},
				},
			}),
		},
	}

	return schema{
		"openapi": "3.0.0",
		"info": schema{
			"title":       "Water Savings Platform API",
			"description": "DryCooler versus cooling tower savings simulator, lead capture and back-office",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths":      paths,
		"components": schema{"schemas": schemas},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 document for the Water Savings Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openAPIDocument())
}
