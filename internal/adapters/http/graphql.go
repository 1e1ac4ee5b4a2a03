package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/campfinder/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.Coordinate).Latitude, nil
				},
			},
			"lng": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.Coordinate).Longitude, nil
				},
			},
			"navigation_url": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return domain.NavigationURL(*p.Source.(*domain.Coordinate)), nil
				},
			},
		},
	})

	listingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Listing",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"name":            &graphql.Field{Type: graphql.String},
			"city":            &graphql.Field{Type: graphql.String},
			"address":         &graphql.Field{Type: graphql.String},
			"distance_meters": &graphql.Field{Type: graphql.Float},
			"coordinate":      &graphql.Field{Type: coordinateType},
		},
	})

	resultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchResult",
		Fields: graphql.Fields{
			"query":        &graphql.Field{Type: graphql.String},
			"source":       &graphql.Field{Type: graphql.String},
			"completed_at": &graphql.Field{Type: graphql.DateTime},
			"center":       &graphql.Field{Type: coordinateType},
			"records":      &graphql.Field{Type: graphql.NewList(listingType)},
		},
	})

	viewType := graphql.NewObject(graphql.ObjectConfig{
		Name: "View",
		Fields: graphql.Fields{
			"view":           &graphql.Field{Type: graphql.String},
			"object_id":      &graphql.Field{Type: graphql.String},
			"history_index":  &graphql.Field{Type: graphql.Int},
			"history_length": &graphql.Field{Type: graphql.Int},
			"detail_status":  &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"suggest": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Place-name suggestions for a partial query",
				Args: graphql.FieldConfigArgument{
					"q": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.App.Places.Suggest(p.Args["q"].(string)), nil
				},
			},
			"results": &graphql.Field{
				Type:        resultType,
				Description: "The last published search result",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return resultMap(deps.App.Search.LastResult(), p.Args["limit"].(int)), nil
				},
			},
			"view": &graphql.Field{
				Type:        viewType,
				Description: "Current view state",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					v := currentView(deps)
					m := map[string]interface{}{
						"view":           string(v.View.Kind),
						"object_id":      v.View.ObjectID,
						"history_index":  v.Index,
						"history_length": v.Length,
					}
					if v.Detail != nil {
						m["detail_status"] = string(v.Detail.Status)
					}
					return m, nil
				},
			},
			"filters": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Active facility filter ids",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.App.Search.ActiveFilters(p.Context), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"search": &graphql.Field{
				Type:        resultType,
				Description: "Run a search for a place name; empty uses the device position",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"force": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					res, err := deps.App.Search.Search(p.Context, p.Args["query"].(string), p.Args["force"].(bool))
					if err != nil {
						return nil, err
					}
					return resultMap(res, p.Args["limit"].(int)), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// resultMap flattens a search result for the resolver tree. limit <= 0
// returns every record.
func resultMap(res *domain.SearchResult, limit int) map[string]interface{} {
	if res == nil {
		return nil
	}
	records := res.Records
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	list := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		list = append(list, map[string]interface{}{
			"id":              r.ID,
			"name":            r.Name,
			"city":            r.City,
			"address":         r.Address,
			"distance_meters": r.DistanceMeters,
			"coordinate":      r.Coordinate,
		})
	}
	center := res.Center
	return map[string]interface{}{
		"query":        res.Query,
		"source":       res.Source,
		"completed_at": res.CompletedAt,
		"center":       &center,
		"records":      list,
	}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
