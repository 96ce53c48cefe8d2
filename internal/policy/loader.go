package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/sheet"
)

// Load reads an access policy from .xlsx, .csv, .yaml or .yml.
//
// Sheet layout: the first column holds the role, every other header is a
// table name and each cell is "ALL", a comma separated column list, or blank.
func Load(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeConfig, "access policy not found at %s", path).
			WithSuggestion("Set ASKDB_POLICY_PATH or pass --policy")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		return loadSheet(path)
	}
}

func loadSheet(path string) (*Store, error) {
	table, err := sheet.Read(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to read access policy")
	}

	if len(table.Header) < 2 {
		return nil, errors.Newf(errors.ErrTypeConfig, "access policy %s has no table columns", path)
	}

	tables := table.Header[1:]

	var rules []Rule

	for _, row := range table.Rows {
		role := sheet.Cell(row, 0)
		if role == "" {
			continue
		}

		for i, tableName := range tables {
			rules = append(rules, Rule{
				Role:   role,
				Table:  tableName,
				Access: ParseCell(sheet.Cell(row, i+1)),
			})
		}
	}

	return NewStore(tables, rules), nil
}

// loadYAML reads
//
//	tables: [cust_mast, acct_mast]    # optional ordering
//	roles:
//	  Teller:
//	    cust_mast: cust_id, cust_name
//	    txn_hist: ALL
//	    card_mast: [acct_id, card_id]
//
// Mapping order is preserved, so it decodes through yaml.Node.
func loadYAML(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to read access policy")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to parse access policy")
	}

	if len(doc.Content) == 0 {
		return NewStore(nil, nil), nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New(errors.ErrTypeConfig, "access policy must be a mapping")
	}

	var (
		tables []string
		rules  []Rule
	)

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		switch key.Value {
		case "tables":
			if err := value.Decode(&tables); err != nil {
				return nil, errors.Wrap(err, errors.ErrTypeConfig, "invalid tables list")
			}
		case "roles":
			parsed, err := parseRoles(value)
			if err != nil {
				return nil, err
			}

			rules = parsed
		default:
			return nil, errors.Newf(errors.ErrTypeConfig, "unknown access policy key %q", key.Value)
		}
	}

	return NewStore(tables, rules), nil
}

func parseRoles(node *yaml.Node) ([]Rule, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errors.New(errors.ErrTypeConfig, "roles must be a mapping")
	}

	var rules []Rule

	for i := 0; i+1 < len(node.Content); i += 2 {
		role, grants := node.Content[i].Value, node.Content[i+1]
		if grants.Kind != yaml.MappingNode {
			return nil, errors.Newf(errors.ErrTypeConfig, "role %s must map tables to columns", role)
		}

		for j := 0; j+1 < len(grants.Content); j += 2 {
			table, cell := grants.Content[j].Value, grants.Content[j+1]

			access, err := parseYAMLCell(cell)
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrTypeConfig, "role %s table %s", role, table)
			}

			rules = append(rules, Rule{Role: role, Table: table, Access: access})
		}
	}

	return rules, nil
}

func parseYAMLCell(node *yaml.Node) (ColumnAccess, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return ColumnAccess{}, nil
		}

		return ParseCell(node.Value), nil
	case yaml.SequenceNode:
		var cols []string
		if err := node.Decode(&cols); err != nil {
			return ColumnAccess{}, err
		}

		return Columns(cols...), nil
	default:
		return ColumnAccess{}, fmt.Errorf("unsupported value at line %d", node.Line)
	}
}
