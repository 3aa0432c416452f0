package geonetwork

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/geonode/geonode/internal/domain"
)

const transactionHeader = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<csw:Transaction xmlns:csw="http://www.opengis.net/cat/csw/2.0.2" ` +
	`xmlns:ogc="http://www.opengis.net/ogc" service="CSW" version="2.0.2"><csw:%s>`

const deleteConstraint = `<csw:Constraint version="1.1.0"><ogc:Filter><ogc:PropertyIsEqualTo>` +
	`<ogc:PropertyName>Identifier</ogc:PropertyName><ogc:Literal>%s</ogc:Literal>` +
	`</ogc:PropertyIsEqualTo></ogc:Filter></csw:Constraint>`

var recordTemplate = template.Must(template.New("iso19139").Funcs(template.FuncMap{
	"x":   xmlEscape,
	"num": func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
}).Parse(`<gmd:MD_Metadata xmlns:gmd="http://www.isotc211.org/2005/gmd" xmlns:gco="http://www.isotc211.org/2005/gco">
  <gmd:fileIdentifier><gco:CharacterString>{{x .Record.UUID}}</gco:CharacterString></gmd:fileIdentifier>
  <gmd:language><gco:CharacterString>eng</gco:CharacterString></gmd:language>
  <gmd:hierarchyLevel><gmd:MD_ScopeCode codeList="http://www.isotc211.org/2005/resources/codeList.xml#MD_ScopeCode" codeListValue="dataset">dataset</gmd:MD_ScopeCode></gmd:hierarchyLevel>
  <gmd:contact>
    <gmd:CI_ResponsibleParty>
      <gmd:individualName><gco:CharacterString>{{x .Record.Contact}}</gco:CharacterString></gmd:individualName>
      <gmd:role><gmd:CI_RoleCode codeList="http://www.isotc211.org/2005/resources/codeList.xml#CI_RoleCode" codeListValue="pointOfContact">pointOfContact</gmd:CI_RoleCode></gmd:role>
    </gmd:CI_ResponsibleParty>
  </gmd:contact>
  <gmd:dateStamp><gco:DateTime>{{.Stamp}}</gco:DateTime></gmd:dateStamp>
  <gmd:metadataStandardName><gco:CharacterString>ISO 19115:2003/19139</gco:CharacterString></gmd:metadataStandardName>
  <gmd:identificationInfo>
    <gmd:MD_DataIdentification>
      <gmd:citation>
        <gmd:CI_Citation>
          <gmd:title><gco:CharacterString>{{x .Record.Title}}</gco:CharacterString></gmd:title>
          <gmd:date>
            <gmd:CI_Date>
              <gmd:date><gco:DateTime>{{.Stamp}}</gco:DateTime></gmd:date>
              <gmd:dateType><gmd:CI_DateTypeCode codeList="http://www.isotc211.org/2005/resources/codeList.xml#CI_DateTypeCode" codeListValue="publication">publication</gmd:CI_DateTypeCode></gmd:dateType>
            </gmd:CI_Date>
          </gmd:date>
        </gmd:CI_Citation>
      </gmd:citation>
      <gmd:abstract><gco:CharacterString>{{x .Record.Abstract}}</gco:CharacterString></gmd:abstract>
      <gmd:pointOfContact>
        <gmd:CI_ResponsibleParty>
          <gmd:individualName><gco:CharacterString>{{x .Record.Owner}}</gco:CharacterString></gmd:individualName>
          <gmd:role><gmd:CI_RoleCode codeList="http://www.isotc211.org/2005/resources/codeList.xml#CI_RoleCode" codeListValue="author">author</gmd:CI_RoleCode></gmd:role>
        </gmd:CI_ResponsibleParty>
      </gmd:pointOfContact>
{{- if .Record.Keywords}}
      <gmd:descriptiveKeywords>
        <gmd:MD_Keywords>
{{- range .Record.Keywords}}
          <gmd:keyword><gco:CharacterString>{{x .}}</gco:CharacterString></gmd:keyword>
{{- end}}
        </gmd:MD_Keywords>
      </gmd:descriptiveKeywords>
{{- end}}
      <gmd:spatialRepresentationType><gmd:MD_SpatialRepresentationTypeCode codeList="http://www.isotc211.org/2005/resources/codeList.xml#MD_SpatialRepresentationTypeCode" codeListValue="{{.Representation}}">{{.Representation}}</gmd:MD_SpatialRepresentationTypeCode></gmd:spatialRepresentationType>
      <gmd:language><gco:CharacterString>eng</gco:CharacterString></gmd:language>
      <gmd:extent>
        <gmd:EX_Extent>
          <gmd:geographicElement>
            <gmd:EX_GeographicBoundingBox>
              <gmd:westBoundLongitude><gco:Decimal>{{num .Record.BBox.MinX}}</gco:Decimal></gmd:westBoundLongitude>
              <gmd:eastBoundLongitude><gco:Decimal>{{num .Record.BBox.MaxX}}</gco:Decimal></gmd:eastBoundLongitude>
              <gmd:southBoundLatitude><gco:Decimal>{{num .Record.BBox.MinY}}</gco:Decimal></gmd:southBoundLatitude>
              <gmd:northBoundLatitude><gco:Decimal>{{num .Record.BBox.MaxY}}</gco:Decimal></gmd:northBoundLatitude>
            </gmd:EX_GeographicBoundingBox>
          </gmd:geographicElement>
        </gmd:EX_Extent>
      </gmd:extent>
    </gmd:MD_DataIdentification>
  </gmd:identificationInfo>
  <gmd:distributionInfo>
    <gmd:MD_Distribution>
      <gmd:transferOptions>
        <gmd:MD_DigitalTransferOptions>
          <gmd:onLine>
            <gmd:CI_OnlineResource>
              <gmd:linkage><gmd:URL>{{x .OWSURL}}</gmd:URL></gmd:linkage>
              <gmd:protocol><gco:CharacterString>OGC:WMS</gco:CharacterString></gmd:protocol>
              <gmd:name><gco:CharacterString>{{x .Record.Typename}}</gco:CharacterString></gmd:name>
            </gmd:CI_OnlineResource>
          </gmd:onLine>
        </gmd:MD_DigitalTransferOptions>
      </gmd:transferOptions>
    </gmd:MD_Distribution>
  </gmd:distributionInfo>
</gmd:MD_Metadata>`))

func renderRecord(record *domain.MetadataRecord, owsURL string, now time.Time) ([]byte, error) {
	representation := "vector"
	if record.Type == domain.ResourceCoverage {
		representation = "grid"
	}
	var buf bytes.Buffer
	err := recordTemplate.Execute(&buf, struct {
		Record         *domain.MetadataRecord
		Stamp          string
		Representation string
		OWSURL         string
	}{
		Record:         record,
		Stamp:          now.UTC().Format("2006-01-02T15:04:05"),
		Representation: representation,
		OWSURL:         owsURL,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering record %s: %w", record.UUID, err)
	}
	return buf.Bytes(), nil
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

type charString struct {
	Value string `xml:"CharacterString"`
}

type responsibleParty struct {
	Name string `xml:"CI_ResponsibleParty>individualName>CharacterString"`
}

type mdMetadata struct {
	FileIdentifier charString       `xml:"fileIdentifier"`
	Contact        responsibleParty `xml:"contact"`
	Identification struct {
		Title          string           `xml:"citation>CI_Citation>title>CharacterString"`
		Abstract       string           `xml:"abstract>CharacterString"`
		PointOfContact responsibleParty `xml:"pointOfContact"`
		Keywords       []string         `xml:"descriptiveKeywords>MD_Keywords>keyword>CharacterString"`
		Representation struct {
			Value string `xml:"codeListValue,attr"`
		} `xml:"spatialRepresentationType>MD_SpatialRepresentationTypeCode"`
		BBox struct {
			West  float64 `xml:"westBoundLongitude>Decimal"`
			East  float64 `xml:"eastBoundLongitude>Decimal"`
			South float64 `xml:"southBoundLatitude>Decimal"`
			North float64 `xml:"northBoundLatitude>Decimal"`
		} `xml:"extent>EX_Extent>geographicElement>EX_GeographicBoundingBox"`
	} `xml:"identificationInfo>MD_DataIdentification"`
	OnlineName string `xml:"distributionInfo>MD_Distribution>transferOptions>MD_DigitalTransferOptions>onLine>CI_OnlineResource>name>CharacterString"`
}

func (m *mdMetadata) toDomain() *domain.MetadataRecord {
	id := m.Identification
	record := &domain.MetadataRecord{
		UUID:     m.FileIdentifier.Value,
		Typename: m.OnlineName,
		Title:    id.Title,
		Abstract: id.Abstract,
		Keywords: id.Keywords,
		Contact:  m.Contact.Name,
		Owner:    id.PointOfContact.Name,
		BBox: domain.BoundingBox{
			MinX: id.BBox.West, MaxX: id.BBox.East,
			MinY: id.BBox.South, MaxY: id.BBox.North,
			CRS: domain.CRSWGS84,
		},
		Type: domain.ResourceFeatureType,
	}
	if i := strings.LastIndex(m.OnlineName, ":"); i >= 0 {
		record.Name = m.OnlineName[i+1:]
	} else {
		record.Name = m.OnlineName
	}
	if id.Representation.Value == "grid" {
		record.Type = domain.ResourceCoverage
	}
	return record
}

type getRecordByIDResponse struct {
	XMLName xml.Name     `xml:"GetRecordByIdResponse"`
	Records []mdMetadata `xml:"MD_Metadata"`
}

type transactionSummary struct {
	Inserted int `xml:"totalInserted"`
	Updated  int `xml:"totalUpdated"`
	Deleted  int `xml:"totalDeleted"`
}

type transactionResponse struct {
	XMLName xml.Name           `xml:"TransactionResponse"`
	Summary transactionSummary `xml:"TransactionSummary"`
}

type exceptionReport struct {
	XMLName    xml.Name `xml:"ExceptionReport"`
	Exceptions []struct {
		Code string `xml:"exceptionCode,attr"`
		Text string `xml:"ExceptionText"`
	} `xml:"Exception"`
}

// parseException returns an error when data is an OWS exception report.
func parseException(data []byte) error {
	if !bytes.Contains(data, []byte("ExceptionReport")) {
		return nil
	}
	var report exceptionReport
	if err := xml.Unmarshal(data, &report); err != nil {
		return nil
	}
	msgs := make([]string, 0, len(report.Exceptions))
	for _, e := range report.Exceptions {
		msgs = append(msgs, strings.TrimSpace(e.Code+": "+strings.TrimSpace(e.Text)))
	}
	return fmt.Errorf("catalog exception: %s", strings.Join(msgs, "; "))
}
