package lib

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve"
	"github.com/boltdb/bolt"
	"github.com/xuri/excelize/v2"
)

/*
	The parts library: a local bolt database of vendor catalog
	components, a bleve full-text index over them, the association table
	that maps (designator prefix, value, footprint) keys to catalog
	parts for the BOM Part column, and the per-footprint offset
	corrections applied when a component declares no override of its own.
*/

var (
	COMPONENTS_BKT     = []byte("components")
	UNINDEXED_BKT      = []byte("unindexed")
	COMPONENTS_ASC_BKT = []byte("component-associations")
	OFFSETS_BKT        = []byte("offset-corrections")
)

type LibraryComponent struct {
	ID             string
	FirstCategory  string
	SecondCategory string
	MFRPart        string
	Package        string
	SolderJoint    string
	Manufacturer   string
	LibraryType    string
	Description    string
	Basic          bool
}

/*
	Canonical part id from a vendor component code.
*/
func FromCID(cid string) string {
	cid = strings.TrimSpace(cid)
	if cid == "" {
		return ""
	}

	if !strings.HasPrefix(cid, "C") {
		cid = "C" + cid
	}

	return cid
}

type Library struct {
	root  string
	db    *bolt.DB
	index bleve.Index
}

/*
	Create or open library from root
*/
func NewLibrary(root string) (*Library, error) {
	if err := os.MkdirAll(root, 0777); err != nil {
		return nil, err
	}

	db, err := bolt.Open(filepath.Join(root, "JFAB.db"), 0777, nil)
	if err != nil {
		return nil, err
	}

	db.Update(func(tx *bolt.Tx) error {
		tx.CreateBucketIfNotExists(COMPONENTS_BKT)
		tx.CreateBucketIfNotExists(UNINDEXED_BKT)
		tx.CreateBucketIfNotExists(COMPONENTS_ASC_BKT)
		tx.CreateBucketIfNotExists(OFFSETS_BKT)

		return nil
	})

	var index bleve.Index
	ipath := filepath.Join(root, "JFAB.index")
	if Exists(ipath) {
		index, err = bleve.Open(ipath)
	} else {
		index, err = bleve.New(ipath, bleve.NewIndexMapping())
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Library{
		root:  root,
		db:    db,
		index: index,
	}, nil
}

func NewDefaultLibrary() (*Library, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}

	return NewLibrary(filepath.Join(base, "jfab"))
}

func (l *Library) Close() {
	l.index.Close()
	l.db.Close()
}

/*
	Import a vendor parts catalog from an excel file. Rows stream
	through a channel so the whole sheet never sits in memory; writes
	happen in batches of 2000 per transaction.
*/
func (l *Library) Import(src string) error {
	rows, err := streamXLSX(src)
	if err != nil {
		return err
	}

	for {
		done := false
		if err := l.db.Update(func(tx *bolt.Tx) error {
			components := tx.Bucket(COMPONENTS_BKT)
			unindexed := tx.Bucket(UNINDEXED_BKT)

			for j := 0; j < 2000; j++ {
				row, ok := <-rows
				if !ok {
					done = true
					return nil
				}

				if len(row) < 9 {
					continue
				}

				component := LibraryComponent{
					ID:             FromCID(row[0]),
					FirstCategory:  row[1],
					SecondCategory: row[2],
					MFRPart:        row[3],
					Package:        row[4],
					SolderJoint:    row[5],
					Manufacturer:   row[6],
					LibraryType:    row[7],
					Description:    row[8],
				}

				bytes, err := Marshal(component)
				if err != nil {
					return err
				}

				if err := components.Put([]byte(component.ID), bytes); err != nil {
					return err
				}

				/*
					ids are removed from unindexed once they are indexed
				*/
				if err := unindexed.Put([]byte(component.ID), []byte("")); err != nil {
					return err
				}
			}

			return nil
		}); err != nil {
			return err
		}

		if done {
			return nil
		}
	}
}

/*
	Import the basic parts catalog from a streaming source, such as the
	vendor API client.
*/
func (l *Library) ImportBasic(components <-chan *LibraryComponent, errs <-chan error) error {
	for component := range components {
		bytes, err := Marshal(*component)
		if err != nil {
			return err
		}

		id := component.ID
		if err := l.db.Update(func(tx *bolt.Tx) error {
			if err := tx.Bucket(COMPONENTS_BKT).Put([]byte(id), bytes); err != nil {
				return err
			}

			return tx.Bucket(UNINDEXED_BKT).Put([]byte(id), []byte(""))
		}); err != nil {
			return err
		}
	}

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

/*
	Index everything imported since the last run.
*/
func (l *Library) IndexPending() error {
	pending := [][]byte{}
	l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(UNINDEXED_BKT).ForEach(func(k, v []byte) error {
			id := make([]byte, len(k))
			copy(id, k)
			pending = append(pending, id)

			return nil
		})
	})

	for _, id := range pending {
		component := l.Get(string(id))
		if component == nil {
			continue
		}

		if err := l.index.Index(component.ID, *component); err != nil {
			return err
		}

		l.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(UNINDEXED_BKT).Delete(id)
		})
	}

	return nil
}

/*
	Put stores a single catalog component and queues it for indexing.
*/
func (l *Library) Put(component *LibraryComponent) error {
	bytes, err := Marshal(*component)
	if err != nil {
		return err
	}

	return l.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(COMPONENTS_BKT).Put([]byte(component.ID), bytes); err != nil {
			return err
		}

		return tx.Bucket(UNINDEXED_BKT).Put([]byte(component.ID), []byte(""))
	})
}

func (l *Library) Get(id string) *LibraryComponent {
	var component *LibraryComponent
	l.db.View(func(tx *bolt.Tx) error {
		bytes := tx.Bucket(COMPONENTS_BKT).Get([]byte(id))
		if bytes == nil {
			return nil
		}

		decoded := LibraryComponent{}
		if err := Unmarshal(bytes, &decoded); err != nil {
			return err
		}

		component = &decoded
		return nil
	})

	return component
}

/*
	Find library components, given a search string
*/
func (l *Library) Find(text string) []*LibraryComponent {
	query := bleve.NewMatchQuery(text)

	request := bleve.NewSearchRequest(query)
	request.Size = 25

	result, err := l.index.Search(request)
	if err != nil {
		return []*LibraryComponent{}
	}

	components := []*LibraryComponent{}
	for _, hit := range result.Hits {
		if component := l.Get(hit.ID); component != nil {
			components = append(components, component)
		}
	}

	return components
}

/*
	Associate a (prefix, value, footprint) key with a catalog part.
*/
func (l *Library) Associate(prefix, value, footprint, id string) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(COMPONENTS_ASC_BKT).Put(
			assocKey(prefix, value, footprint), []byte(FromCID(id)),
		)
	})
}

/*
	FindMatching resolves an association to its catalog component. A
	part that was associated but never imported still resolves, with
	only the id filled in.
*/
func (l *Library) FindMatching(prefix, value, footprint string) *LibraryComponent {
	id := ""
	l.db.View(func(tx *bolt.Tx) error {
		bytes := tx.Bucket(COMPONENTS_ASC_BKT).Get(assocKey(prefix, value, footprint))
		if bytes != nil {
			id = string(bytes)
		}

		return nil
	})

	if id == "" {
		return nil
	}

	if component := l.Get(id); component != nil {
		return component
	}

	return &LibraryComponent{ID: id, Description: "No description available"}
}

func (l *Library) ExportAssociations() <-chan [2]string {
	associations := make(chan [2]string, 100)

	go func() {
		defer close(associations)

		l.db.View(func(tx *bolt.Tx) error {
			return tx.Bucket(COMPONENTS_ASC_BKT).ForEach(func(k, v []byte) error {
				parts := []string{}
				if err := Unmarshal(k, &parts); err != nil {
					return nil
				}

				associations <- [2]string{strings.Join(parts, ","), string(v)}

				return nil
			})
		})
	}()

	return associations
}

func (l *Library) ImportAssocations(rows chan []string) error {
	for row := range rows {
		if len(row) < 2 {
			continue
		}

		parts := strings.Split(row[0], ",")
		if len(parts) != 3 {
			return fmt.Errorf("malformed association key: %s", row[0])
		}

		if err := l.Associate(parts[0], parts[1], parts[2], row[1]); err != nil {
			return err
		}
	}

	return nil
}

/*
	Offset corrections compensate for footprint libraries whose origin
	does not match the vendor's expected part center. They apply only to
	components that declare no override of their own.
*/
func (l *Library) SetOffset(footprint string, dx, dy float64) error {
	value, err := Marshal(Position{X: dx, Y: dy})
	if err != nil {
		return err
	}

	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(OFFSETS_BKT).Put([]byte(footprint), value)
	})
}

func (l *Library) OffsetFor(footprint string) (Position, bool) {
	position := Position{}
	found := false

	l.db.View(func(tx *bolt.Tx) error {
		bytes := tx.Bucket(OFFSETS_BKT).Get([]byte(footprint))
		if bytes == nil {
			return nil
		}

		if err := Unmarshal(bytes, &position); err != nil {
			return err
		}

		found = true
		return nil
	})

	return position, found
}

/*
	Stream the first sheet of an excel file row by row.
*/
func streamXLSX(src string) (<-chan []string, error) {
	f, err := excelize.OpenFile(src)
	if err != nil {
		return nil, err
	}

	erows, err := f.Rows(f.GetSheetList()[0])
	if err != nil {
		return nil, err
	}

	rows := make(chan []string, 100)
	go func() {
		defer close(rows)

		for erows.Next() {
			row, err := erows.Columns()
			if err != nil {
				continue
			}

			rows <- row
		}
	}()

	return rows, nil
}

func (l *Library) Offsets() map[string]Position {
	offsets := map[string]Position{}

	l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(OFFSETS_BKT).ForEach(func(k, v []byte) error {
			position := Position{}
			if err := Unmarshal(v, &position); err != nil {
				return nil
			}

			offsets[string(k)] = position

			return nil
		})
	})

	return offsets
}
