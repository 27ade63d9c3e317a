package fallback

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nuestro-pulso/pulso-search/internal/clock"
	"github.com/nuestro-pulso/pulso-search/internal/model"
	"github.com/nuestro-pulso/pulso-search/internal/textnorm"
)

// Article is one bundled civic news item.
type Article struct {
	Title    string
	Summary  string
	Source   string
	Link     string
	Category string
	AgeHours int
}

const (
	baseMatchScore   = 40.0
	titleHitWeight   = 10.0
	summaryHitWeight = 4.0
	maxCorpusScore   = 95.0
	topicBaseScore   = 30.0
	minTokenLen      = 3
)

// DefaultArticles is the corpus shipped with the service.
var DefaultArticles = []Article{
	{"Registraduría publica el calendario electoral para las elecciones de 2026", "La Registraduría Nacional del Estado Civil confirmó las fechas de inscripción de cédulas, candidatos y jurados de votación.", "Registraduría Nacional", "https://www.registraduria.gov.co/", "Elecciones", 20},
	{"Congreso retoma el debate de la reforma a la salud", "La Comisión Séptima del Senado reanuda la discusión del proyecto de reforma al sistema de salud tras el receso legislativo.", "Senado de la República", "https://www.senado.gov.co/", "Política", 30},
	{"Procuraduría lanza guía de participación ciudadana en la contratación pública", "La guía explica cómo las veedurías pueden hacer seguimiento a los contratos de alcaldías y gobernaciones.", "Procuraduría General", "https://www.procuraduria.gov.co/", "Participación", 48},
	{"Cómo funcionan las consultas populares en Colombia", "Explicación del mecanismo de participación, sus requisitos de umbral y los temas que pueden someterse a votación.", "Función Pública", "https://www.funcionpublica.gov.co/", "Participación", 72},
	{"Corte Constitucional revisa la ley de seguridad ciudadana", "El alto tribunal estudia las demandas contra varios artículos de la ley y escuchará a organizaciones de derechos humanos.", "Corte Constitucional", "https://www.corteconstitucional.gov.co/", "Justicia", 96},
	{"Bogotá abre convocatoria para presupuestos participativos", "Los habitantes de las localidades podrán votar proyectos de inversión en parques, cultura y movilidad.", "Alcaldía de Bogotá", "https://bogota.gov.co/", "Participación", 12},
	{"Medellín presenta balance de seguridad del primer semestre", "La alcaldía reporta cifras de homicidios, hurtos y acciones de convivencia en las comunas.", "Alcaldía de Medellín", "https://www.medellin.gov.co/", "Seguridad", 60},
	{"Avances de la política de paz total en las regiones", "Delegados del Gobierno y comunidades evalúan los diálogos en Cauca, Nariño y Catatumbo.", "Oficina del Alto Comisionado para la Paz", "https://www.altocomisionadoparalapaz.gov.co/", "Paz", 84},
	{"Fiscalía entrega informe sobre delitos electorales", "El informe detalla las denuncias por compra de votos y trashumancia electoral registradas en el último año.", "Fiscalía General", "https://www.fiscalia.gov.co/", "Elecciones", 110},
	{"Gobierno radica proyecto de reforma laboral", "El texto propone cambios en la jornada nocturna, recargos dominicales y contratos de aprendizaje.", "Ministerio del Trabajo", "https://www.mintrabajo.gov.co/", "Economía", 140},
	{"Cali se prepara para la temporada de lluvias", "La Unidad de Gestión del Riesgo activa planes de contingencia en barrios cercanos a los ríos.", "Alcaldía de Cali", "https://www.cali.gov.co/", "Ambiente", 36},
	{"Consejo Nacional Electoral fija topes de gastos de campaña", "Los candidatos a alcaldías, gobernaciones y concejos deberán reportar sus gastos en la plataforma Cuentas Claras.", "Consejo Nacional Electoral", "https://www.cne.gov.co/", "Elecciones", 150},
}

var topicTemplates = []struct{ title, summary string }{
	{"%s: lo que debe saber", "Contexto y claves para entender %s en Colombia."},
	{"Participación ciudadana y %s", "Cómo la ciudadanía puede informarse e incidir en las decisiones sobre %s."},
	{"Preguntas frecuentes sobre %s", "Respuestas a las dudas más comunes sobre %s."},
}

// Corpus answers universal searches from bundled articles.
type Corpus struct {
	articles []indexedArticle
	clk      clock.Clock
}

type indexedArticle struct {
	Article
	id            string
	titleTokens   map[string]struct{}
	summaryTokens map[string]struct{}
}

// NewCorpus indexes articles for accent-insensitive matching.
func NewCorpus(clk clock.Clock, articles []Article) *Corpus {
	c := &Corpus{clk: clk}
	for _, a := range articles {
		c.articles = append(c.articles, indexedArticle{
			Article:       a,
			id:            uuid.NewSHA1(uuid.NameSpaceURL, []byte(a.Link+"#"+a.Title)).String(),
			titleTokens:   tokenSet(a.Title),
			summaryTokens: tokenSet(a.Summary),
		})
	}
	return c
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range textnorm.Tokens(s) {
		set[t] = struct{}{}
	}
	return set
}

// Generate returns the matching articles, best first, capped at count. When
// nothing matches it returns topic pages for the term.
func (c *Corpus) Generate(q model.Query, count int) []model.ResultRecord {
	if count <= 0 {
		return nil
	}
	now := c.clk.Now()
	terms := queryTokens(q.Term)

	type scored struct {
		rec   model.ResultRecord
		score float64
	}
	var hits []scored
	for _, a := range c.articles {
		var titleHits, summaryHits int
		for _, t := range terms {
			if _, ok := a.titleTokens[t]; ok {
				titleHits++
			}
			if _, ok := a.summaryTokens[t]; ok {
				summaryHits++
			}
		}
		if len(terms) > 0 && titleHits+summaryHits == 0 {
			continue
		}
		score := math.Min(maxCorpusScore, baseMatchScore+titleHitWeight*float64(titleHits)+summaryHitWeight*float64(summaryHits))
		hits = append(hits, scored{rec: c.record(a, now, score), score: score})
	}

	if len(hits) == 0 {
		return c.topicPages(q.Term, count, now)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > count {
		hits = hits[:count]
	}
	out := make([]model.ResultRecord, len(hits))
	for i, h := range hits {
		out[i] = h.rec
	}
	return out
}

func (c *Corpus) record(a indexedArticle, now time.Time, score float64) model.ResultRecord {
	return model.ResultRecord{
		ID:             a.id,
		Title:          a.Title,
		Description:    a.Summary,
		Source:         a.Source,
		PublishedAt:    now.Add(-time.Duration(a.AgeHours) * time.Hour),
		Link:           a.Link,
		Category:       a.Category,
		RelevanceScore: score,
		Origin:         model.OriginFallback,
	}
}

func (c *Corpus) topicPages(term string, count int, now time.Time) []model.ResultRecord {
	topic := term
	if topic == "" {
		topic = defaultTopic
	}
	n := min(count, len(topicTemplates))
	out := make([]model.ResultRecord, 0, n)
	for i := 0; i < n; i++ {
		tpl := topicTemplates[i]
		title := fmt.Sprintf(tpl.title, topic)
		out = append(out, model.ResultRecord{
			ID:             uuid.NewSHA1(uuid.NameSpaceOID, []byte(title)).String(),
			Title:          title,
			Description:    fmt.Sprintf(tpl.summary, topic),
			Source:         "Nuestro Pulso",
			PublishedAt:    now,
			RelevanceScore: topicBaseScore - float64(i),
			Origin:         model.OriginFallback,
		})
	}
	return out
}

func queryTokens(term string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range textnorm.Tokens(term) {
		if len([]rune(t)) < minTokenLen {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
