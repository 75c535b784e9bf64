package graph

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/kjstillabower/metar-gateway/internal/models"
)

// NewSchema builds the gateway schema:
//
//	type Query {
//	  books: [Book]
//	  getMetar(id: String!): [Metar!]!
//	}
//
// Root fields expect the *Resolver placed in the root object by
// Resolver.RootObject.
func NewSchema() (graphql.Schema, error) {
	bookType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Book",
		Fields: graphql.Fields{
			"title":  bookField(func(b models.Book) interface{} { return b.Title }),
			"author": bookField(func(b models.Book) interface{} { return b.Author }),
		},
	})

	skyConditionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SkyCondition",
		Fields: graphql.Fields{
			"sky_cover": skyField(graphql.NewNonNull(graphql.String), func(s models.SkyCondition) interface{} {
				return s.SkyCover
			}),
			"cloud_base_ft_agl": skyField(graphql.Int, func(s models.SkyCondition) interface{} {
				return optionalInt(s.CloudBaseFtAGL)
			}),
		},
	})

	nonNullString := graphql.NewNonNull(graphql.String)
	nonNullFloat := graphql.NewNonNull(graphql.Float)
	metarType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Metar",
		Fields: graphql.Fields{
			"raw_text": metarField(nonNullString, func(m models.MetarReport) interface{} { return m.RawText }),
			"station_id": metarField(graphql.String, func(m models.MetarReport) interface{} {
				return optionalString(m.StationID)
			}),
			"observation_time": metarField(nonNullString, func(m models.MetarReport) interface{} { return m.ObservationTime }),
			"latitude":         metarField(nonNullFloat, func(m models.MetarReport) interface{} { return m.Latitude }),
			"longitude":        metarField(nonNullFloat, func(m models.MetarReport) interface{} { return m.Longitude }),
			"temp_c":           metarField(nonNullFloat, func(m models.MetarReport) interface{} { return m.TempC }),
			"dewpoint_c":       metarField(nonNullFloat, func(m models.MetarReport) interface{} { return m.DewpointC }),
			"wind_dir_degrees": metarField(graphql.NewNonNull(graphql.Int), func(m models.MetarReport) interface{} {
				return m.WindDirDegrees
			}),
			"wind_speed_kt": metarField(nonNullFloat, func(m models.MetarReport) interface{} { return m.WindSpeedKt }),
			"visibility_statute_mi": metarField(graphql.Float, func(m models.MetarReport) interface{} {
				return optionalFloat(m.VisibilityStatuteMi)
			}),
			"altim_in_hg": metarField(nonNullFloat, func(m models.MetarReport) interface{} { return m.AltimInHg }),
			"sea_level_pressure_mb": metarField(graphql.Float, func(m models.MetarReport) interface{} {
				return optionalFloat(m.SeaLevelPressureMb)
			}),
			"flight_category": metarField(graphql.String, func(m models.MetarReport) interface{} {
				return optionalString(m.FlightCategory)
			}),
			"sky_condition": metarField(graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(skyConditionType))), func(m models.MetarReport) interface{} {
				if m.SkyCondition == nil {
					return []models.SkyCondition{}
				}
				return m.SkyCondition
			}),
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"books": &graphql.Field{
				Type: graphql.NewList(bookType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r, err := resolverFrom(p)
					if err != nil {
						return nil, err
					}
					return r.Books(), nil
				},
			},
			"getMetar": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(metarType))),
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r, err := resolverFrom(p)
					if err != nil {
						return nil, err
					}
					id, _ := p.Args["id"].(string)
					reports, err := r.GetMetar(contextOf(p), id)
					if err != nil {
						// A typed nil would not count as null to graphql-go.
						return nil, err
					}
					return reports, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

// Execute runs one GraphQL request against schema with r as the root value.
func Execute(ctx context.Context, schema graphql.Schema, r *Resolver, query, operationName string, variables map[string]interface{}) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  query,
		OperationName:  operationName,
		VariableValues: variables,
		RootObject:     r.RootObject(),
		Context:        ctx,
	})
}

func resolverFrom(p graphql.ResolveParams) (*Resolver, error) {
	root, _ := p.Source.(map[string]interface{})
	r, ok := root[rootResolverKey].(*Resolver)
	if !ok || r == nil {
		return nil, fmt.Errorf("graph: no resolver in root object")
	}
	return r, nil
}

func contextOf(p graphql.ResolveParams) context.Context {
	if p.Context != nil {
		return p.Context
	}
	return context.Background()
}

func bookField(get func(models.Book) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: graphql.String,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			b, ok := p.Source.(models.Book)
			if !ok {
				return nil, fmt.Errorf("graph: unexpected Book source %T", p.Source)
			}
			return get(b), nil
		},
	}
}

func metarField(t graphql.Output, get func(models.MetarReport) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			m, ok := p.Source.(models.MetarReport)
			if !ok {
				return nil, fmt.Errorf("graph: unexpected Metar source %T", p.Source)
			}
			return get(m), nil
		},
	}
}

func skyField(t graphql.Output, get func(models.SkyCondition) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			s, ok := p.Source.(models.SkyCondition)
			if !ok {
				return nil, fmt.Errorf("graph: unexpected SkyCondition source %T", p.Source)
			}
			return get(s), nil
		},
	}
}

// optional* unwrap pointers so that absent values reach graphql-go as an untyped nil.

func optionalString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func optionalFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func optionalInt(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}
