package http

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"heartform/ml"
)

//go:embed templates/form.html
var templateFS embed.FS

var formTemplate = template.Must(template.ParseFS(templateFS, "templates/form.html"))

type formView struct {
	Fields []ml.FormField
	Values map[string]string
	Result string
	Error  string
}

func formValues(in ml.ClinicalInputs) map[string]string {
	return map[string]string{
		"sex":      in.Sex,
		"cp":       strconv.Itoa(in.ChestPain),
		"trestbps": strconv.FormatFloat(in.RestingBP, 'f', -1, 64),
		"chol":     strconv.FormatFloat(in.Cholesterol, 'f', -1, 64),
		"fbs":      in.FastingBloodSugar,
		"restecg":  strconv.Itoa(in.RestECG),
		"thalach":  strconv.FormatFloat(in.MaxHeartRate, 'f', -1, 64),
		"exang":    in.ExerciseAngina,
		"oldpeak":  strconv.FormatFloat(in.STDepression, 'f', 1, 64),
		"slope":    strconv.Itoa(in.Slope),
		"ca":       strconv.FormatFloat(in.Vessels, 'f', -1, 64),
		"thal":     strconv.Itoa(in.Thalassemia),
	}
}

// submittedValues overlays the raw submission on the defaults so a rejected
// form comes back as the user typed it.
func submittedValues(form url.Values) map[string]string {
	values := formValues(ml.DefaultInputs())
	for key := range values {
		if v := form.Get(key); v != "" {
			values[key] = v
		}
	}
	return values
}

func (h *Handlers) handleForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, http.StatusOK, formView{Values: formValues(ml.DefaultInputs())})
}

func (h *Handlers) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderForm(w, http.StatusBadRequest, formView{Values: formValues(ml.DefaultInputs()), Error: err.Error()})
		return
	}
	in, err := ml.ParseForm(r.PostForm)
	if err != nil {
		h.renderForm(w, http.StatusBadRequest, formView{Values: submittedValues(r.PostForm), Error: err.Error()})
		return
	}
	resp, err := h.predict(r.Context(), requestID(r), in)
	if err != nil {
		h.renderForm(w, predictStatus(err), formView{Values: formValues(in), Error: "prediction failed: " + err.Error()})
		return
	}
	h.renderForm(w, http.StatusOK, formView{Values: formValues(in), Result: resp.Display})
}

func (h *Handlers) renderForm(w http.ResponseWriter, status int, view formView) {
	view.Fields = ml.FormFields()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := formTemplate.Execute(w, view); err != nil {
		h.logger.Error("render form", zap.Error(err))
	}
}
