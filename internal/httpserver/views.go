package httpserver

import (
	"bytes"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/druguse/internal/chart"
	"github.com/tinytelemetry/druguse/internal/export"
	"github.com/tinytelemetry/druguse/internal/model"
)

// chartView is the data passed to the shared "chart" template.
type chartView struct {
	Type   string
	Label  string
	Series chart.Series
}

func (s *Server) handleRoot(c *gin.Context) {
	c.Redirect(http.StatusFound, "/ages")
}

func (s *Server) handleAges(c *gin.Context) {
	ages, err := s.store.AgeIndex()
	if err != nil {
		serverError(c, "AgeIndex", err)
		return
	}
	c.HTML(http.StatusOK, "ages.tmpl", gin.H{
		"Title": "Ages",
		"Ages":  ages,
	})
}

func (s *Server) handleAge(c *gin.Context) {
	age := c.Param("age")
	rec, prev, next, err := s.ageDetail(age)
	if errors.Is(err, model.ErrNotFound) {
		notFound(c, "Error: no data for age "+age)
		return
	}
	if err != nil {
		serverError(c, "age detail", err)
		return
	}

	c.HTML(http.StatusOK, "age.tmpl", gin.H{
		"Title":   "Age " + rec.Age,
		"Record":  rec,
		"PrevAge": prev,
		"NextAge": next,
		"Chart": chartView{
			Type:   "bar",
			Label:  "use (%) at age " + rec.Age,
			Series: chart.FromRecordUse(rec),
		},
	})
}

// ageDetail loads the record for age and the labels of its neighbours in
// insertion order.
func (s *Server) ageDetail(age string) (rec model.Record, prev, next string, err error) {
	rec, err = s.store.RecordByAge(age)
	if err != nil {
		return rec, "", "", err
	}
	ages, err := s.store.AgeIndex()
	if err != nil {
		return rec, "", "", err
	}
	prev, next = ageNeighbors(ages, rec)
	return rec, prev, next, nil
}

// ageNeighbors finds rec in ages by row identity and returns the previous and
// next age labels, wrapping around both ends. Duplicate labels do not matter
// because the match is on rowid only.
func ageNeighbors(ages []model.AgeEntry, rec model.Record) (prev, next string) {
	n := len(ages)
	if n == 0 {
		return rec.Age, rec.Age
	}
	idx := 0
	for i, e := range ages {
		if e.RowID == rec.RowID {
			idx = i
			break
		}
	}
	return ages[(idx-1+n)%n].Age, ages[(idx+1)%n].Age
}

func (s *Server) handleDrugs(c *gin.Context) {
	c.HTML(http.StatusOK, "drugs.tmpl", gin.H{
		"Title": "Drugs",
		"Drugs": model.Drugs,
	})
}

func (s *Server) handleDrug(c *gin.Context) {
	drug := c.Param("drug")
	msg := "Error: no data for drug " + drug
	if !model.IsDrug(drug) {
		notFound(c, msg)
		return
	}

	points, err := s.store.DrugSeries(drug, model.MetricUse)
	if err != nil {
		serverError(c, "DrugSeries", err)
		return
	}
	if len(points) == 0 {
		notFound(c, msg)
		return
	}
	prev, next, _ := model.Neighbors(drug)

	c.HTML(http.StatusOK, "drug.tmpl", gin.H{
		"Title":    drug,
		"Drug":     drug,
		"Rows":     points,
		"PrevDrug": prev,
		"NextDrug": next,
		"Chart": chartView{
			Type:   "line",
			Label:  drug + " use (%)",
			Series: chart.FromPoints(points),
		},
	})
}

func (s *Server) handleFrequency(c *gin.Context) {
	drug := c.Query("drug")
	if drug == "" {
		drug = model.Drugs[0]
	}
	if !model.IsDrug(drug) {
		notFound(c, "Error: no data for frequency of "+drug)
		return
	}

	points, err := s.store.DrugSeries(drug, model.MetricFrequency)
	if err != nil {
		serverError(c, "DrugSeries", err)
		return
	}

	c.HTML(http.StatusOK, "frequency.tmpl", gin.H{
		"Title": drug + " frequency",
		"Drug":  drug,
		"Rows":  points,
		"Drugs": model.Drugs,
		"Chart": chartView{
			Type:   "bar",
			Label:  drug + " frequency",
			Series: chart.FromPoints(points),
		},
	})
}

// handleExport serves the whole table as a workbook. It is built in memory
// first so a failure still yields a clean 500.
func (s *Server) handleExport(c *gin.Context) {
	records, err := s.store.Records()
	if err != nil {
		serverError(c, "Records", err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, records); err != nil {
		log.Printf("httpserver: export: %v", err)
		c.String(http.StatusInternalServerError, "Export error")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="drug-use-by-age.xlsx"`)
	c.Data(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}

func (s *Server) handleNoRoute(c *gin.Context) {
	notFound(c, "Error: No data found for "+c.Request.URL.RequestURI())
}

func notFound(c *gin.Context, message string) {
	c.HTML(http.StatusNotFound, "404.tmpl", gin.H{
		"Title":   "Not found",
		"Message": message,
	})
}

// serverError hides the cause from the client and logs it.
func serverError(c *gin.Context, op string, err error) {
	log.Printf("httpserver: %s: %v", op, err)
	c.String(http.StatusInternalServerError, "Database error")
}
