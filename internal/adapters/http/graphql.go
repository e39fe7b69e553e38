package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services. The
// schema is read-only and serves the same redacted projections as the
// REST endpoints: there is no field for the target coordinates.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	challengeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Challenge",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.String},
			"name":             &graphql.Field{Type: graphql.String},
			"category":         &graphql.Field{Type: graphql.String},
			"description":      &graphql.Field{Type: graphql.String},
			"kind":             &graphql.Field{Type: graphql.String},
			"state":            &graphql.Field{Type: graphql.String},
			"value":            &graphql.Field{Type: graphql.Int},
			"max_attempts":     &graphql.Field{Type: graphql.Int},
			"tolerance_radius": &graphql.Field{Type: graphql.Float},
			"solve_count":      &graphql.Field{Type: graphql.Int},
		},
	})

	solveType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Solve",
		Fields: graphql.Fields{
			"user_id":    &graphql.Field{Type: graphql.String},
			"team_id":    &graphql.Field{Type: graphql.String},
			"submission": &graphql.Field{Type: graphql.String},
			"solved_at":  &graphql.Field{Type: graphql.String},
		},
	})

	scoreboardEntryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ScoreboardEntry",
		Fields: graphql.Fields{
			"rank":    &graphql.Field{Type: graphql.Int},
			"team_id": &graphql.Field{Type: graphql.String},
			"user_id": &graphql.Field{Type: graphql.String},
			"score":   &graphql.Field{Type: graphql.Int},
			"solves":  &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"challenges": &graphql.Field{
				Type:        graphql.NewList(challengeType),
				Description: "List challenges; visible by default, state: \"all\" includes hidden",
				Args: graphql.FieldConfigArgument{
					"state": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "visible"},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					state := p.Args["state"].(string)
					if state == "all" {
						state = ""
					}
					return deps.Challenges.List(p.Context, state)
				},
			},
			"challenge": &graphql.Field{
				Type:        challengeType,
				Description: "Get a challenge by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Challenges.GetView(p.Context, id)
				},
			},
			"solves": &graphql.Field{
				Type:        graphql.NewList(solveType),
				Description: "Public solve feed for a challenge",
				Args: graphql.FieldConfigArgument{
					"challenge_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":        &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					challengeID := p.Args["challenge_id"].(string)
					limit := p.Args["limit"].(int)
					solves, err := deps.Attempts.Solves(p.Context, challengeID, limit)
					if err != nil {
						return nil, err
					}
					// Flatten to maps so the timestamp formats consistently
					var result []map[string]interface{}
					for _, s := range solves {
						result = append(result, map[string]interface{}{
							"user_id":    s.UserID,
							"team_id":    s.TeamID,
							"submission": s.Submission,
							"solved_at":  s.SolvedAt.Format("2006-01-02T15:04:05Z07:00"),
						})
					}
					return result, nil
				},
			},
			"scoreboard": &graphql.Field{
				Type:        graphql.NewList(scoreboardEntryType),
				Description: "Aggregated standings",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					return deps.Attempts.Scoreboard(p.Context, limit)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
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
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
